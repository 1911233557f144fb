package adapters

import (
	"github.com/de-tools/cost-notifier/pkg/models/api"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

func MapDomainPeriodToAPI(p domain.ReportingPeriod) api.Period {
	return api.Period{
		Start: p.Start.Format(domain.DateLayout),
		End:   p.End.Format(domain.DateLayout),
		Key:   p.Key(),
		Days:  p.Days(),
	}
}

func MapDomainResultToAPI(res domain.InvocationResult) api.InvocationResult {
	out := api.InvocationResult{
		InvocationID: res.InvocationID,
		PeriodKey:    res.PeriodKey,
		Outcome:      string(res.Outcome),
		State:        string(res.State),
		MessageID:    res.MessageID,
	}
	if res.Message != nil {
		out.Report = &api.Report{
			Title:       res.Message.Title,
			Text:        res.Message.Text,
			Total:       res.Message.Amount.Total.StringFixed(2),
			Currency:    res.Message.Amount.Currency,
			GeneratedAt: res.Message.GeneratedAt,
		}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		out.ErrorKind = string(domain.KindOf(res.Err))
	}
	return out
}
