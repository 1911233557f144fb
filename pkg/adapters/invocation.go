package adapters

import (
	"fmt"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/models/store"
)

func MapDomainInvocationToStore(record domain.InvocationRecord) store.InvocationRecord {
	return store.InvocationRecord{
		PeriodKey:    record.PeriodKey,
		PeriodStart:  record.PeriodStart.Format(domain.DateLayout),
		PeriodEnd:    record.PeriodEnd.Format(domain.DateLayout),
		PublishedAt:  record.PublishedAt.UTC(),
		InvocationID: record.InvocationID,
		MessageID:    record.MessageID,
	}
}

func MapStoreInvocationToDomain(record store.InvocationRecord) (domain.InvocationRecord, error) {
	start, err := time.Parse(domain.DateLayout, record.PeriodStart)
	if err != nil {
		return domain.InvocationRecord{}, fmt.Errorf("parse period start %q: %w", record.PeriodStart, err)
	}
	end, err := time.Parse(domain.DateLayout, record.PeriodEnd)
	if err != nil {
		return domain.InvocationRecord{}, fmt.Errorf("parse period end %q: %w", record.PeriodEnd, err)
	}

	return domain.InvocationRecord{
		PeriodKey:    record.PeriodKey,
		PeriodStart:  start,
		PeriodEnd:    end,
		PublishedAt:  record.PublishedAt.UTC(),
		InvocationID: record.InvocationID,
		MessageID:    record.MessageID,
	}, nil
}
