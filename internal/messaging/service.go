package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/phone"
	"github.com/wolfman30/office-portal/internal/records"
	"github.com/wolfman30/office-portal/internal/validation"
	"github.com/wolfman30/office-portal/pkg/logging"
)

var messagingTracer = otel.Tracer("office.internal.messaging")

// MaxBodyLength is the longest body, in characters, the office API accepts.
const MaxBodyLength = 1000

// ErrThreadReload means the message was sent but re-listing the thread failed.
var ErrThreadReload = errors.New("messaging: message sent but thread reload failed")

// API is the slice of the office API used for texting.
type API interface {
	ListMessages(ctx context.Context, to string) ([]records.Message, error)
	SendMessage(ctx context.Context, req officeapi.SendMessageRequest) error
}

// BookingLookup answers whether a confirmation id is in the current cache.
type BookingLookup interface {
	HasBooking(id string) bool
}

// Thread is the message history for one canonical number, in server order.
type Thread struct {
	To       string            `json:"to"`
	Messages []records.Message `json:"messages"`
}

// Service sends texts and lists threads. Every number is normalized before
// it reaches the API.
type Service struct {
	api     API
	lookup  BookingLookup
	logger  *logging.Logger
	metrics *metrics.PortalMetrics
}

// NewService wires the messaging sub-flow. lookup may be nil, in which case
// any non-empty context id is forwarded.
func NewService(api API, lookup BookingLookup, logger *logging.Logger, m *metrics.PortalMetrics) *Service {
	if api == nil {
		panic("messaging: api required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{api: api, lookup: lookup, logger: logger, metrics: m}
}

// ValidateBody rejects blank bodies and bodies over MaxBodyLength characters.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return validation.New("body", "message body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return validation.New("body", fmt.Sprintf("message body must be at most %d characters", MaxBodyLength))
	}
	return nil
}

// Send texts body to the normalized number and returns the refreshed
// thread. contextID ties the message to a booking and is only forwarded
// when that booking is in the cache. Validation happens before any call.
func (s *Service) Send(ctx context.Context, to, body, contextID string) (Thread, error) {
	canonical, err := phone.Parse(to)
	if err != nil {
		s.metrics.ObserveMessage("invalid")
		return Thread{}, err
	}
	if err := ValidateBody(body); err != nil {
		s.metrics.ObserveMessage("invalid")
		return Thread{}, err
	}

	ctx, span := messagingTracer.Start(ctx, "messaging.send")
	defer span.End()

	req := officeapi.SendMessageRequest{To: canonical, Body: body}
	if contextID = strings.TrimSpace(contextID); contextID != "" {
		if s.lookup == nil || s.lookup.HasBooking(contextID) {
			req.Context = contextID
		} else {
			s.logger.Warn("dropping message context not in cache", "context", contextID)
		}
	}
	span.SetAttributes(
		attribute.Int("office.message.length", utf8.RuneCountInString(body)),
		attribute.Bool("office.message.has_context", req.Context != ""),
	)

	if err := s.api.SendMessage(ctx, req); err != nil {
		span.RecordError(err)
		s.metrics.ObserveMessage("error")
		s.logger.Warn("message send failed", "error", err)
		return Thread{}, fmt.Errorf("messaging: send: %w", err)
	}
	s.metrics.ObserveMessage("sent")
	s.logger.Info("message sent", "context", req.Context)

	thread, err := s.listThread(ctx, canonical)
	if err != nil {
		return Thread{To: canonical}, fmt.Errorf("%w: %w", ErrThreadReload, err)
	}
	return thread, nil
}

// ListThread returns the history for the normalized number.
func (s *Service) ListThread(ctx context.Context, to string) (Thread, error) {
	canonical, err := phone.Parse(to)
	if err != nil {
		return Thread{}, err
	}
	ctx, span := messagingTracer.Start(ctx, "messaging.list_thread")
	defer span.End()

	thread, err := s.listThread(ctx, canonical)
	if err != nil {
		span.RecordError(err)
		return Thread{}, fmt.Errorf("messaging: list thread: %w", err)
	}
	span.SetAttributes(attribute.Int("office.message.count", len(thread.Messages)))
	return thread, nil
}

func (s *Service) listThread(ctx context.Context, canonical string) (Thread, error) {
	msgs, err := s.api.ListMessages(ctx, canonical)
	if err != nil {
		return Thread{}, err
	}
	if msgs == nil {
		msgs = []records.Message{}
	}
	return Thread{To: canonical, Messages: msgs}, nil
}
