package aws_ce

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultMetric = "UnblendedCost"

	getCostOp = "get cost and usage"
)

// API is the subset of the Cost Explorer client the source needs.
type API interface {
	GetCostAndUsage(
		ctx context.Context,
		params *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options),
	) (*costexplorer.GetCostAndUsageOutput, error)
}

type Options struct {
	Metric   string // e.g. UnblendedCost, AmortizedCost
	Currency string // used when the period has no cost data at all
}

type source struct {
	client   API
	metric   string
	currency string
}

func NewSource(client API, opts Options) cost.Source {
	if opts.Metric == "" {
		opts.Metric = DefaultMetric
	}
	if opts.Currency == "" {
		opts.Currency = domain.DefaultCurrency
	}
	return &source{client: client, metric: opts.Metric, currency: opts.Currency}
}

// NewSourceFromConfig builds a Cost Explorer backed source. SDK retries are
// disabled; attempts are owned by cost.Retrying.
func NewSourceFromConfig(cfg aws.Config, region string, opts Options) cost.Source {
	if region == "" {
		region = DefaultRegion
	}
	client := costexplorer.NewFromConfig(cfg, func(o *costexplorer.Options) {
		o.Region = region
		o.Retryer = aws.NopRetryer{}
	})
	return NewSource(client, opts)
}

func (s *source) GetUsage(ctx context.Context, period domain.ReportingPeriod) (domain.UsageAmount, error) {
	logger := zerolog.Ctx(ctx)

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(period.Start.Format(domain.DateLayout)),
			End:   aws.String(period.End.Format(domain.DateLayout)),
		},
		Granularity: types.GranularityMonthly,
		Metrics:     []string{s.metric},
		Filter: &types.Expression{
			Not: &types.Expression{
				Dimensions: &types.DimensionValues{
					Key:    types.DimensionRecordType,
					Values: []string{"Credit", "Refund"},
				},
			},
		},
		GroupBy: []types.GroupDefinition{
			{
				Type: types.GroupDefinitionTypeDimension,
				Key:  aws.String(string(types.DimensionService)),
			},
		},
	}

	agg := newAggregator(s.metric)
	for page := 1; ; page++ {
		result, err := s.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return domain.UsageAmount{}, classifyError(getCostOp, err)
		}

		if err := agg.add(result); err != nil {
			return domain.UsageAmount{}, domain.PermanentSourceError(getCostOp, err)
		}

		if result.NextPageToken == nil || *result.NextPageToken == "" {
			logger.Debug().Int("pages", page).Str("period", period.String()).Msg("cost and usage fetched")
			break
		}
		input.NextPageToken = result.NextPageToken
	}

	usage := agg.usage(s.currency)
	if usage.Total.IsNegative() {
		logger.Warn().
			Str("total", usage.Total.String()).
			Str("period", period.String()).
			Msg("negative cost total after excluding credits, reporting zero")
		usage.Total = decimal.Zero
	}
	return usage, nil
}

type aggregator struct {
	metric   string
	currency string
	total    decimal.Decimal
	services map[string]decimal.Decimal
}

func newAggregator(metric string) *aggregator {
	return &aggregator{
		metric:   metric,
		total:    decimal.Zero,
		services: make(map[string]decimal.Decimal),
	}
}

func (a *aggregator) add(result *costexplorer.GetCostAndUsageOutput) error {
	for _, byTime := range result.ResultsByTime {
		for _, group := range byTime.Groups {
			metric, ok := group.Metrics[a.metric]
			if !ok || metric.Amount == nil {
				continue
			}

			amount, err := decimal.NewFromString(*metric.Amount)
			if err != nil {
				return fmt.Errorf("failed to parse %s amount %q: %w", a.metric, *metric.Amount, err)
			}
			if err := a.setCurrency(aws.ToString(metric.Unit)); err != nil {
				return err
			}

			service := "Unknown"
			if len(group.Keys) > 0 {
				service = group.Keys[0]
			}
			a.services[service] = a.services[service].Add(amount)
			a.total = a.total.Add(amount)
		}
	}
	return nil
}

func (a *aggregator) setCurrency(unit string) error {
	if unit == "" {
		return nil
	}
	if a.currency == "" {
		a.currency = unit
		return nil
	}
	if a.currency != unit {
		return fmt.Errorf("mixed currencies in cost data: %s and %s", a.currency, unit)
	}
	return nil
}

func (a *aggregator) usage(fallbackCurrency string) domain.UsageAmount {
	currency := a.currency
	if currency == "" {
		currency = fallbackCurrency
	}

	services := make([]domain.ServiceCost, 0, len(a.services))
	for name, amount := range a.services {
		services = append(services, domain.ServiceCost{Service: name, Amount: amount})
	}
	sort.Slice(services, func(i, j int) bool {
		if c := services[i].Amount.Cmp(services[j].Amount); c != 0 {
			return c > 0
		}
		return services[i].Service < services[j].Service
	})

	return domain.UsageAmount{
		Currency: currency,
		Total:    a.total,
		Services: services,
	}
}
