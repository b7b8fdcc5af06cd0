package race

import "fmt"

// MergeReport describes how well the three tables of a race lined up
type MergeReport struct {
	Candidates int `json:"candidates"`
	Odds       int `json:"odds"`
	Records    int `json:"records"`
	Merged     int `json:"merged"`
	// Dropped counts rows of the longer tables that had no partner
	Dropped int `json:"dropped"`
	// NumberMismatches counts merged rows whose starting numbers disagree
	NumberMismatches int `json:"number_mismatches"`
}

// Aligned reports whether every table had the same length and every merged
// row agreed on its starting number.
func (r MergeReport) Aligned() bool {
	return r.Dropped == 0 && r.NumberMismatches == 0
}

// Merge zips the race card, odds, and record tables of a race by position,
// injects prize money, and normalizes every row.
//
// Rows are paired purely by index. When the tables differ in length only the
// first min(len) rows are merged; the report says how many were dropped.
func Merge(r *Race, n Normalizer) ([]Record, MergeReport, error) {
	count := min(len(r.Candidates), len(r.Odds), len(r.Records))
	report := MergeReport{
		Candidates: len(r.Candidates),
		Odds:       len(r.Odds),
		Records:    len(r.Records),
		Merged:     count,
		Dropped:    len(r.Candidates) + len(r.Odds) + len(r.Records) - 3*count,
	}

	records := make([]Record, 0, count)
	if count == 0 {
		return records, report, nil
	}

	identity := r.Identity
	date, err := n.NormalizeRaceDate(identity.Date)
	if err != nil {
		return nil, report, err
	}
	identity.Date = date

	for i := 0; i < count; i++ {
		candidate, odds, result := r.Candidates[i], r.Odds[i], r.Records[i]
		if candidate.Number != odds.Number || candidate.Number != result.Number {
			report.NumberMismatches++
		}

		rec, err := n.mergeRow(identity, candidate, odds, result)
		if err != nil {
			return nil, report, fmt.Errorf("row %d: %w", i+1, err)
		}
		rec.Prize = r.Prizes.Lookup(result.Order)
		records = append(records, rec)
	}

	return records, report, nil
}

// mergeRow builds one normalized Record
func (n Normalizer) mergeRow(identity Identity, c CandidateRow, o OddsRow, rr RecordRow) (Record, error) {
	birthday, err := n.NormalizeBirthday(c.Birthday)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Identity:    identity,
		Number:      c.Number,
		Sire:        c.Sire,
		Horse:       c.Name,
		Dam:         c.Dam,
		DamSire:     c.DamSire,
		Birthday:    birthday,
		Owner:       c.Owner,
		Breeder:     c.Breeder,
		Color:       c.Color,
		Burden:      c.Burden,
		Jockey:      c.Jockey,
		Affiliation: c.Affiliation,
		WinRate:     StripPercent(c.WinRate),
		Top3Rate:    StripPercent(c.Top3Rate),
		Trainer:     c.Trainer,
		WinOdds:     o.Win,
		Order:       rr.Order,
		Time:        rr.Time,
	}
	rec.Sex, rec.Age = SplitSexAge(c.SexAge)
	rec.PlacedWeightLower, rec.PlacedWeightUpper = SplitPlacedWeight(c.PlacedWeight)
	rec.PrevWeight, rec.WeightDelta = SplitWeightChange(c.WeightChange)
	rec.PlaceOddsLower, rec.PlaceOddsUpper = SplitPlaceOdds(o.Place)

	return rec, nil
}
