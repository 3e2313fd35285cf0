package dispatch

import (
	"context"
	"errors"

	"restronaut/internal/document"
	"restronaut/internal/services"
)

// OrderService is the remote contract the Reporter calls.
type OrderService interface {
	CreateOrder(ctx context.Context, body map[string]string) error
	ReportPrepOrder(ctx context.Context, jsonBody string) error
	ReportInStoreSales(ctx context.Context, body map[string]string) error
}

// Reporter maps document kinds onto order service calls.
type Reporter struct {
	service OrderService
}

// NewReporter wraps an order service client.
func NewReporter(service OrderService) *Reporter {
	return &Reporter{service: service}
}

// Report sends doc to the endpoint for its kind. It returns false without an
// error when the document carries no reportable loyalty memo.
func (r *Reporter) Report(ctx context.Context, doc *document.Document) (bool, error) {
	if doc == nil {
		return false, services.Wrap(services.ErrUnrecognized, "dispatch", "report", "nil document", nil)
	}
	switch doc.Kind {
	case document.KindCheckFinalization:
		if _, ok := doc.LoyaltyMemo(); !ok {
			return false, nil
		}
		body, err := document.ToJSON(doc.Tree)
		if err != nil {
			return false, services.Wrap(services.ErrParse, "dispatch", "instore sales report", "convert document", err)
		}
		if err := r.service.ReportInStoreSales(ctx, map[string]string{"xml": body}); err != nil {
			return false, remoteError("instore sales report", err)
		}
		return true, nil

	case document.KindPrepOrder:
		if doc.Prep == nil || !doc.Prep.Reportable() {
			return false, nil
		}
		body, err := doc.Prep.JSON()
		if err != nil {
			return false, services.Wrap(services.ErrParse, "dispatch", "prep sales report", "encode payload", err)
		}
		if err := r.service.ReportPrepOrder(ctx, body); err != nil {
			return false, remoteError("prep sales report", err)
		}
		return true, nil

	case document.KindManualOrder:
		if err := r.service.CreateOrder(ctx, map[string]string{"xml": string(doc.Raw)}); err != nil {
			return false, remoteError("create order", err)
		}
		return true, nil

	default:
		return false, services.Wrap(services.ErrUnrecognized, "dispatch", "report", "no endpoint for "+doc.Kind.String(), nil)
	}
}

func remoteError(op string, err error) error {
	if errors.Is(err, services.ErrRemoteCall) {
		return err
	}
	return services.Wrap(services.ErrRemoteCall, "dispatch", op, "", err)
}
