package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/banei-scraper/internal/race"
)

// Page selectors
const (
	raceNoteSelector   = "div.raceNote"
	raceCardSelector   = "tbody.raceCard"
	oddsTableSelector  = "tbody.single.selectWrap"
	recordSelector     = "tbody.record"
	mainStateSelector  = "ul.trackState.trackMainState"
	prizeBlockSelector = "dl.prizeMoney ol"
)

var (
	raceCardFields = []Field{FieldNumber, FieldName, FieldProfile, FieldWeight, FieldWeightDistance}
	oddsFields     = []Field{FieldNumber, FieldOddsWin, FieldOddsPlace}
	recordFields   = []Field{FieldNumber, FieldOrder, FieldTime}
)

// The race card name cell also carries the odds; its token is discarded
// because odds come from the odds page.
var raceCardColumns = []column[race.CandidateRow]{
	{"馬番", func(r *race.CandidateRow, v string) { r.Number = v }},
	{"父馬", func(r *race.CandidateRow, v string) { r.Sire = v }},
	{"馬名", func(r *race.CandidateRow, v string) { r.Name = v }},
	{"母馬", func(r *race.CandidateRow, v string) { r.Dam = v }},
	{"母父馬", func(r *race.CandidateRow, v string) { r.DamSire = v }},
	{"オッズ", nil},
	{"誕生日", func(r *race.CandidateRow, v string) { r.Birthday = v }},
	{"馬主名", func(r *race.CandidateRow, v string) { r.Owner = v }},
	{"生産牧場", func(r *race.CandidateRow, v string) { r.Breeder = v }},
	{"性齢", func(r *race.CandidateRow, v string) { r.SexAge = v }},
	{"毛色", func(r *race.CandidateRow, v string) { r.Color = v }},
	{"負担重量", func(r *race.CandidateRow, v string) { r.Burden = v }},
	{"騎手名", func(r *race.CandidateRow, v string) { r.Jockey = v }},
	{"所属", func(r *race.CandidateRow, v string) { r.Affiliation = v }},
	{"勝率", func(r *race.CandidateRow, v string) { r.WinRate = v }},
	{"3着内率", func(r *race.CandidateRow, v string) { r.Top3Rate = v }},
	{"調教師名", func(r *race.CandidateRow, v string) { r.Trainer = v }},
	{"連対時馬体重", func(r *race.CandidateRow, v string) { r.PlacedWeight = v }},
	{"馬体重増減", func(r *race.CandidateRow, v string) { r.WeightChange = v }},
}

var oddsColumns = []column[race.OddsRow]{
	{"馬番", func(r *race.OddsRow, v string) { r.Number = v }},
	{"単勝オッズ", func(r *race.OddsRow, v string) { r.Win = v }},
	{"複勝オッズ", func(r *race.OddsRow, v string) { r.Place = v }},
}

var recordColumns = []column[race.RecordRow]{
	{"馬番", func(r *race.RecordRow, v string) { r.Number = v }},
	{"着順", func(r *race.RecordRow, v string) { r.Order = v }},
	{"タイム", func(r *race.RecordRow, v string) { r.Time = v }},
}

// ExtractRaceCard pulls the race identity, prize table, and candidate rows
// from a race card page.
func ExtractRaceCard(doc *goquery.Document, url string, n race.Normalizer) (race.Identity, race.PrizeTable, []race.CandidateRow, error) {
	note := doc.Find(raceNoteSelector).First()
	if note.Length() == 0 {
		return race.Identity{}, nil, nil, &StructuralError{Section: raceNoteSelector, URL: url}
	}

	identity := race.Identity{
		Name:      strings.TrimSpace(note.Find("h2").First().Text()),
		Date:      strings.TrimSpace(note.Find("ul.trackState").First().Find("li").First().Text()),
		Round:     strings.TrimSpace(doc.Find("div.placeNumber span.num").First().Text()),
		Weather:   race.Placeholder,
		Condition: race.Placeholder,
	}

	// weather and condition are optional
	if states := note.Find(mainStateSelector).First().Find("dd"); states.Length() >= 2 {
		identity.Weather = strings.TrimSpace(states.Eq(0).Text())
		identity.Condition = race.StripPercent(strings.TrimSpace(states.Eq(1).Text()))
	}

	prizes, err := n.ParsePrizes(prizeText(note))
	if err != nil {
		return race.Identity{}, nil, nil, err
	}

	candidates, err := extractRows(doc, url, raceCardSelector, raceCardFields, raceCardColumns)
	if err != nil {
		return race.Identity{}, nil, nil, err
	}

	return identity, prizes, candidates, nil
}

// prizeText returns the prize block as one line per position
func prizeText(note *goquery.Selection) string {
	block := note.Find(prizeBlockSelector).First()
	if block.Length() == 0 {
		return ""
	}

	items := block.Find("li")
	if items.Length() == 0 {
		return block.Text()
	}

	lines := make([]string, 0, items.Length())
	items.Each(func(_ int, li *goquery.Selection) {
		lines = append(lines, li.Text())
	})
	return strings.Join(lines, "\n")
}

// ExtractOdds pulls win and place odds from an odds page
func ExtractOdds(doc *goquery.Document, url string) ([]race.OddsRow, error) {
	return extractRows(doc, url, oddsTableSelector, oddsFields, oddsColumns)
}

// ExtractRecord pulls finishing order and time from a result page
func ExtractRecord(doc *goquery.Document, url string) ([]race.RecordRow, error) {
	return extractRows(doc, url, recordSelector, recordFields, recordColumns)
}
