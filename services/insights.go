package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"listing-fraud-detector/models"
	"listing-fraud-detector/utils"
)

const riskiestCount = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger, out io.Writer) *InsightService {
	return &InsightService{logger: logger, out: out}
}

// Generate summarises a scored batch.
func (s *InsightService) Generate(scored []*models.ScoredListing) *models.RiskReport {
	report := &models.RiskReport{
		LabelCounts:       make(map[models.Label]int),
		FlaggedByCategory: make(map[string]int),
	}

	if len(scored) == 0 {
		return report
	}

	report.TotalListings = len(scored)
	report.MinScore = scored[0].Verdict.Score
	report.MaxScore = scored[0].Verdict.Score

	var total float64
	for _, sl := range scored {
		v := sl.Verdict
		report.LabelCounts[v.Label]++
		total += v.Score
		report.MinScore = min(report.MinScore, v.Score)
		report.MaxScore = max(report.MaxScore, v.Score)

		if v.Label.Flagged() {
			report.FlaggedByCategory[sl.Listing.Category]++
		}

		if sl.IsFake == nil {
			continue
		}
		if *sl.IsFake {
			report.LabeledFakes++
			if v.Label.Flagged() {
				report.LabeledFakesCaught++
			}
		} else {
			report.LabeledGenuine++
			if v.Label == models.LabelSafe {
				report.LabeledGenuineSafe++
			}
		}
	}
	report.AverageScore = round4(total / float64(len(scored)))

	ranked := make([]*models.ScoredListing, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Verdict.Score > ranked[j].Verdict.Score
	})
	if len(ranked) > riskiestCount {
		ranked = ranked[:riskiestCount]
	}
	report.Riskiest = ranked

	s.logger.Debug("[insights] %d listings, %d flagged", report.TotalListings,
		report.LabelCounts[models.LabelSuspicious]+report.LabelCounts[models.LabelHighRisk])
	return report
}

func (s *InsightService) Print(r *models.RiskReport) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)
	w := s.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  LISTING RISK REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings scored : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Safe            : \033[1;32m%d\033[0m\n", r.LabelCounts[models.LabelSafe])
	fmt.Fprintf(w, "  Suspicious      : \033[1;33m%d\033[0m\n", r.LabelCounts[models.LabelSuspicious])
	fmt.Fprintf(w, "  High risk       : \033[1;31m%d\033[0m\n", r.LabelCounts[models.LabelHighRisk])
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Score Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalListings > 0 {
		fmt.Fprintf(w, "  Average score : \033[1m%.4f\033[0m\n", r.AverageScore)
		fmt.Fprintf(w, "  Minimum score : \033[1m%.4f\033[0m\n", r.MinScore)
		fmt.Fprintf(w, "  Maximum score : \033[1m%.4f\033[0m\n", r.MaxScore)
	} else {
		fmt.Fprintf(w, "  No listings scored\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d Riskiest Listings\033[0m\n", riskiestCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Riskiest) == 0 {
		fmt.Fprintf(w, "  None\n")
	}
	for i, sl := range r.Riskiest {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-36s %-10s \033[1;31m%.3f\033[0m\n",
			i+1, truncate(sl.Listing.Title, 34), sl.Verdict.Label, sl.Verdict.Score)
		if len(sl.Verdict.Explanation) > 0 {
			top := sl.Verdict.Explanation[0]
			fmt.Fprintf(w, "     top signal: %s (%.3f)\n", top.Feature, top.Contribution)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Flagged by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.FlaggedByCategory) == 0 {
		fmt.Fprintf(w, "  Nothing flagged\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.FlaggedByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", min(cc.count, 40))
			fmt.Fprintf(w, "  %-20s %s (%d)\n", truncate(cc.cat, 18), bar, cc.count)
		}
	}

	if r.LabeledFakes+r.LabeledGenuine > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "\033[1;33m  Against Labels\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Fakes flagged       : %d / %d\n", r.LabeledFakesCaught, r.LabeledFakes)
		fmt.Fprintf(w, "  Genuine marked safe : %d / %d\n", r.LabeledGenuineSafe, r.LabeledGenuine)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
