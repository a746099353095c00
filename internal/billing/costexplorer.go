// Package billing queries AWS Cost Explorer for daily spend grouped by
// service.
package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"costwatch/internal/report"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/rs/zerolog"
)

const (
	metricBlendedCost = "BlendedCost"
	dateLayout        = "2006-01-02"
)

// CostExplorerAPI is the slice of the Cost Explorer client the source needs.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

type Source struct {
	api CostExplorerAPI
	log zerolog.Logger
}

func NewSource(api CostExplorerAPI, log zerolog.Logger) *Source {
	return &Source{api: api, log: log}
}

// DailyCosts fetches the blended cost for the single day starting at day,
// grouped by service. Throttling errors pass through unwrapped so the retry
// layer can classify them by code.
func (s *Source) DailyCosts(ctx context.Context, day time.Time) (report.Report, error) {
	start := day.UTC().Format(dateLayout)
	end := day.UTC().AddDate(0, 0, 1).Format(dateLayout)
	s.log.Info().Str("start", start).Str("end", end).Msg("querying cost explorer")

	out, err := s.api.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{metricBlendedCost},
		GroupBy: []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
	})
	if err != nil {
		return report.Report{}, err
	}
	if len(out.ResultsByTime) == 0 {
		return report.Report{}, nil
	}
	return mapResult(out.ResultsByTime[0])
}

func mapResult(res types.ResultByTime) (report.Report, error) {
	r := report.Report{}
	if res.TimePeriod != nil {
		r.Date = aws.ToString(res.TimePeriod.Start)
	}
	total, err := parseAmount(res.Total[metricBlendedCost])
	if err != nil {
		return report.Report{}, fmt.Errorf("parse total cost: %w", err)
	}
	r.Total = total
	for _, g := range res.Groups {
		if len(g.Keys) == 0 {
			continue
		}
		amount, err := parseAmount(g.Metrics[metricBlendedCost])
		if err != nil {
			return report.Report{}, fmt.Errorf("parse cost for %s: %w", g.Keys[0], err)
		}
		r.Services = append(r.Services, report.ServiceCost{Service: g.Keys[0], Amount: amount})
	}
	return r, nil
}

func parseAmount(v types.MetricValue) (float64, error) {
	if v.Amount == nil {
		return 0, nil
	}
	return strconv.ParseFloat(aws.ToString(v.Amount), 64)
}
