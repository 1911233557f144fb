package aws_ce

import (
	"context"
	"errors"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

var permanentCodes = map[string]struct{}{
	"AccessDeniedException":          {},
	"UnrecognizedClientException":    {},
	"InvalidClientTokenId":           {},
	"InvalidSignatureException":      {},
	"ExpiredTokenException":          {},
	"ValidationException":            {},
	"BillExpirationException":        {},
	"DataUnavailableException":       {},
	"InvalidNextTokenException":      {},
	"RequestChangedException":        {},
	"UnresolvableUsageUnitException": {},
}

var transientCodes = map[string]struct{}{
	"LimitExceededException":   {},
	"ThrottlingException":      {},
	"TooManyRequestsException": {},
	"ServiceUnavailable":       {},
	"InternalFailure":          {},
}

// classifyError splits Cost Explorer failures into retryable and permanent.
// Unrecognised errors count as transient so the bounded retry surfaces them.
func classifyError(op string, err error) error {
	if isPermanent(err) {
		return domain.PermanentSourceError(op, err)
	}
	return domain.TransientSourceError(op, err)
}

func isPermanent(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentCodes[apiErr.ErrorCode()]; ok {
			return true
		}
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return false
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusTooManyRequests, status >= 500:
			return false
		case status == http.StatusUnauthorized, status == http.StatusForbidden:
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}

	if apiErr != nil && apiErr.ErrorFault() == smithy.FaultClient {
		return true
	}
	return false
}
