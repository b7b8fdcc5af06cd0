package race

import "strconv"

// Placeholder marks a field that is missing or could not be normalized
const Placeholder = "-"

// Column labels used in the CSV output, in the order they are written
const (
	ColName              = "レース名"
	ColDate              = "日付"
	ColRound             = "ラウンド"
	ColWeather           = "天候"
	ColCondition         = "馬場"
	ColNumber            = "馬番"
	ColSire              = "父馬"
	ColHorse             = "馬名"
	ColDam               = "母馬"
	ColDamSire           = "母父馬"
	ColBirthday          = "誕生日"
	ColOwner             = "馬主名"
	ColBreeder           = "生産牧場"
	ColSex               = "性"
	ColAge               = "年齢"
	ColColor             = "毛色"
	ColBurden            = "負担重量"
	ColJockey            = "騎手名"
	ColAffiliation       = "所属"
	ColWinRate           = "勝率"
	ColTop3Rate          = "3着内率"
	ColTrainer           = "調教師名"
	ColPlacedWeightLower = "連対時馬体重(下限)"
	ColPlacedWeightUpper = "連対時馬体重(上限)"
	ColPrevWeight        = "馬体重(前走)"
	ColWeightDelta       = "体重増減差"
	ColWinOdds           = "単勝オッズ"
	ColPlaceOddsLower    = "複勝オッズ(下限)"
	ColPlaceOddsUpper    = "複勝オッズ(上限)"
	ColOrder             = "着順"
	ColTime              = "タイム"
	ColPrize             = "賞金"
)

// Header is the column order of every per-round and aggregated file:
// race identity, candidate, odds, record, prize.
var Header = []string{
	ColName, ColDate, ColRound, ColWeather, ColCondition,
	ColNumber, ColSire, ColHorse, ColDam, ColDamSire, ColBirthday, ColOwner, ColBreeder,
	ColSex, ColAge, ColColor, ColBurden, ColJockey, ColAffiliation, ColWinRate, ColTop3Rate, ColTrainer,
	ColPlacedWeightLower, ColPlacedWeightUpper, ColPrevWeight, ColWeightDelta,
	ColWinOdds, ColPlaceOddsLower, ColPlaceOddsUpper,
	ColOrder, ColTime,
	ColPrize,
}

// Identity describes one race and is attached to every row of it
type Identity struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Round     string `json:"round"`
	Weather   string `json:"weather"`
	Condition string `json:"condition"`
}

// PrizeTable holds prize amounts by finishing position; index 0 is the winner.
type PrizeTable []int

// Lookup returns the prize for a finishing order. Orders that are not a
// positive integer inside the table earn nothing.
func (p PrizeTable) Lookup(order string) int {
	k, err := strconv.Atoi(order)
	if err != nil {
		return 0
	}
	if k < 1 || k > len(p) {
		return 0
	}
	return p[k-1]
}

// CandidateRow is one horse's entry on the race card
type CandidateRow struct {
	Number       string `json:"number"`
	Sire         string `json:"sire"`
	Name         string `json:"name"`
	Dam          string `json:"dam"`
	DamSire      string `json:"dam_sire"`
	Birthday     string `json:"birthday"`
	Owner        string `json:"owner"`
	Breeder      string `json:"breeder"`
	SexAge       string `json:"sex_age"`
	Color        string `json:"color"`
	Burden       string `json:"burden"`
	Jockey       string `json:"jockey"`
	Affiliation  string `json:"affiliation"`
	WinRate      string `json:"win_rate"`
	Top3Rate     string `json:"top3_rate"`
	Trainer      string `json:"trainer"`
	PlacedWeight string `json:"placed_weight"` // "min|max"
	WeightChange string `json:"weight_change"` // e.g. "480+4"
}

// OddsRow is one horse's row on the odds page
type OddsRow struct {
	Number string `json:"number"`
	Win    string `json:"win"`
	Place  string `json:"place"` // "1.5 - 2.3"
}

// RecordRow is one horse's row on the result page
type RecordRow struct {
	Number string `json:"number"`
	Order  string `json:"order"`
	Time   string `json:"time"`
}

// Race is everything scraped for one (date, round)
type Race struct {
	Identity   Identity
	Prizes     PrizeTable
	Candidates []CandidateRow
	Odds       []OddsRow
	Records    []RecordRow
}

// Record is a merged and normalized output row
type Record struct {
	Identity

	Number            string `json:"number"`
	Sire              string `json:"sire"`
	Horse             string `json:"horse"`
	Dam               string `json:"dam"`
	DamSire           string `json:"dam_sire"`
	Birthday          string `json:"birthday"`
	Owner             string `json:"owner"`
	Breeder           string `json:"breeder"`
	Sex               string `json:"sex"`
	Age               string `json:"age"`
	Color             string `json:"color"`
	Burden            string `json:"burden"`
	Jockey            string `json:"jockey"`
	Affiliation       string `json:"affiliation"`
	WinRate           string `json:"win_rate"`
	Top3Rate          string `json:"top3_rate"`
	Trainer           string `json:"trainer"`
	PlacedWeightLower string `json:"placed_weight_lower"`
	PlacedWeightUpper string `json:"placed_weight_upper"`
	PrevWeight        string `json:"prev_weight"`
	WeightDelta       string `json:"weight_delta"`

	WinOdds        string `json:"win_odds"`
	PlaceOddsLower string `json:"place_odds_lower"`
	PlaceOddsUpper string `json:"place_odds_upper"`

	Order string `json:"order"`
	Time  string `json:"time"`

	Prize int `json:"prize"`
}

// Values returns the record as a CSV row in Header order
func (r *Record) Values() []string {
	return []string{
		r.Name, r.Date, r.Round, r.Weather, r.Condition,
		r.Number, r.Sire, r.Horse, r.Dam, r.DamSire, r.Birthday, r.Owner, r.Breeder,
		r.Sex, r.Age, r.Color, r.Burden, r.Jockey, r.Affiliation, r.WinRate, r.Top3Rate, r.Trainer,
		r.PlacedWeightLower, r.PlacedWeightUpper, r.PrevWeight, r.WeightDelta,
		r.WinOdds, r.PlaceOddsLower, r.PlaceOddsUpper,
		r.Order, r.Time,
		strconv.Itoa(r.Prize),
	}
}
