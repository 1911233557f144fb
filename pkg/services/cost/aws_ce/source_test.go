package aws_ce

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	pages  []*costexplorer.GetCostAndUsageOutput
	err    error
	inputs []costexplorer.GetCostAndUsageInput
}

func (s *stubClient) GetCostAndUsage(
	_ context.Context,
	params *costexplorer.GetCostAndUsageInput,
	_ ...func(*costexplorer.Options),
) (*costexplorer.GetCostAndUsageOutput, error) {
	s.inputs = append(s.inputs, *params)
	if s.err != nil {
		return nil, s.err
	}
	page := s.pages[len(s.inputs)-1]
	return page, nil
}

func group(service, amount, unit string) types.Group {
	return types.Group{
		Keys: []string{service},
		Metrics: map[string]types.MetricValue{
			DefaultMetric: {Amount: aws.String(amount), Unit: aws.String(unit)},
		},
	}
}

func period(t *testing.T) domain.ReportingPeriod {
	p, err := domain.NewReportingPeriod(
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return p
}

func TestSource_GetUsage_AggregatesPages(t *testing.T) {
	client := &stubClient{pages: []*costexplorer.GetCostAndUsageOutput{
		{
			ResultsByTime: []types.ResultByTime{{
				Groups: []types.Group{
					group("Amazon Elastic Compute Cloud - Compute", "100.1", "USD"),
					group("AWS Lambda", "0.0000001", "USD"),
				},
			}},
			NextPageToken: aws.String("next"),
		},
		{
			ResultsByTime: []types.ResultByTime{{
				Groups: []types.Group{
					group("Amazon Simple Storage Service", "23.3499999", "USD"),
				},
			}},
		},
	}}
	src := NewSource(client, Options{})

	usage, err := src.GetUsage(context.Background(), period(t))

	require.NoError(t, err)
	assert.Equal(t, "USD", usage.Currency)
	assert.Equal(t, "123.45", usage.Total.String())
	require.Len(t, usage.Services, 3)
	assert.Equal(t, "Amazon Elastic Compute Cloud - Compute", usage.Services[0].Service)
	assert.Equal(t, "AWS Lambda", usage.Services[2].Service)

	require.Len(t, client.inputs, 2)
	first := client.inputs[0]
	assert.Equal(t, "2024-02-01", aws.ToString(first.TimePeriod.Start))
	assert.Equal(t, "2024-03-01", aws.ToString(first.TimePeriod.End))
	assert.Equal(t, types.GranularityMonthly, first.Granularity)
	assert.Equal(t, []string{DefaultMetric}, first.Metrics)
	assert.Equal(t, "SERVICE", aws.ToString(first.GroupBy[0].Key))
	assert.Nil(t, first.NextPageToken)
	assert.Equal(t, "next", aws.ToString(client.inputs[1].NextPageToken))
}

func TestSource_GetUsage_EmptyPeriodIsZero(t *testing.T) {
	client := &stubClient{pages: []*costexplorer.GetCostAndUsageOutput{{
		ResultsByTime: []types.ResultByTime{{Groups: nil}},
	}}}
	src := NewSource(client, Options{Currency: "EUR"})

	usage, err := src.GetUsage(context.Background(), period(t))

	require.NoError(t, err)
	assert.True(t, usage.Total.IsZero())
	assert.Equal(t, "EUR", usage.Currency)
	assert.Empty(t, usage.Services)
}

func TestSource_GetUsage_MixedCurrenciesIsPermanent(t *testing.T) {
	client := &stubClient{pages: []*costexplorer.GetCostAndUsageOutput{{
		ResultsByTime: []types.ResultByTime{{
			Groups: []types.Group{group("A", "1", "USD"), group("B", "1", "JPY")},
		}},
	}}}

	_, err := NewSource(client, Options{}).GetUsage(context.Background(), period(t))

	require.Error(t, err)
	assert.Equal(t, domain.KindPermanentSource, domain.KindOf(err))
}

func TestSource_GetUsage_NegativeTotalClampsToZero(t *testing.T) {
	client := &stubClient{pages: []*costexplorer.GetCostAndUsageOutput{{
		ResultsByTime: []types.ResultByTime{{
			Groups: []types.Group{group("Tax", "-0.01", "USD")},
		}},
	}}}

	usage, err := NewSource(client, Options{}).GetUsage(context.Background(), period(t))

	require.NoError(t, err)
	assert.True(t, usage.Total.IsZero())
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("http failure"),
		},
		RequestID: "req-1",
	}
}

func TestSource_GetUsage_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient}, domain.KindPermanentSource},
		{"bad credentials", &smithy.GenericAPIError{Code: "UnrecognizedClientException"}, domain.KindPermanentSource},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, domain.KindPermanentSource},
		{"throttled", &smithy.GenericAPIError{Code: "LimitExceededException", Fault: smithy.FaultClient}, domain.KindTransientSource},
		{"unknown client fault", &smithy.GenericAPIError{Code: "SomethingNew", Fault: smithy.FaultClient}, domain.KindPermanentSource},
		{"server fault", &smithy.GenericAPIError{Code: "SomethingNew", Fault: smithy.FaultServer}, domain.KindTransientSource},
		{"http 503", responseError(http.StatusServiceUnavailable), domain.KindTransientSource},
		{"http 429", responseError(http.StatusTooManyRequests), domain.KindTransientSource},
		{"http 403", responseError(http.StatusForbidden), domain.KindPermanentSource},
		{"timeout", context.DeadlineExceeded, domain.KindTransientSource},
		{"unknown", errors.New("connection reset by peer"), domain.KindTransientSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{err: tt.err}

			_, err := NewSource(client, Options{}).GetUsage(context.Background(), period(t))

			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCheckProfile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	credentialsPath := filepath.Join(dir, "credentials")

	require.NoError(t, os.WriteFile(configPath, []byte("[default]\nregion = us-east-1\n\n[profile billing]\nregion = us-east-1\n"), 0o600))
	require.NoError(t, os.WriteFile(credentialsPath, []byte("[ci]\naws_access_key_id = x\naws_secret_access_key = y\n"), 0o600))

	assert.NoError(t, checkProfileIn("billing", configPath, credentialsPath))
	assert.NoError(t, checkProfileIn("ci", configPath, credentialsPath))
	assert.NoError(t, checkProfileIn("default", configPath, credentialsPath))
	assert.Error(t, checkProfileIn("missing", configPath, credentialsPath))

	// no shared files: defer to the SDK
	assert.NoError(t, checkProfileIn("anything", filepath.Join(dir, "nope"), filepath.Join(dir, "nope2")))
}

func TestLoadConfig_Region(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := LoadConfig(context.Background(), "", "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	cfg, err = LoadConfig(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.Region)
}
