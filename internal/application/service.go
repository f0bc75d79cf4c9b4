package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/lpn-service/internal/domain"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
	"github.com/wms-platform/lpn-service/pkg/tenant"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

// Deps are the collaborators shared by every command handler. Publisher and
// Views are optional.
type Deps struct {
	Store     domain.EventStore
	Locks     domain.LockService
	Publisher domain.EventPublisher
	Views     domain.LpnViewRepository
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Clock     func() time.Time
	LockTTL   time.Duration
}

// core runs the lock, load, mutate, persist, release cycle shared by handlers.
type core struct {
	store     domain.EventStore
	locks     domain.LockService
	publisher domain.EventPublisher
	projector *Projector
	logger    *logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	lockTTL   time.Duration
}

func newCore(deps Deps, component string) *core {
	c := &core{
		store:     deps.Store,
		locks:     deps.Locks,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		clock:     deps.Clock,
		lockTTL:   deps.LockTTL,
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = c.logger.WithComponent(component)
	if c.tracer == nil {
		c.tracer = otel.Tracer("lpn-service")
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.lockTTL <= 0 {
		c.lockTTL = DefaultLockTTL
	}
	c.projector = NewProjector(deps.Views, c.logger)
	c.projector.clock = c.clock
	return c
}

func (c *core) now() time.Time { return c.clock().UTC() }

func (c *core) scope() *lockScope {
	return &lockScope{locks: c.locks, ttl: c.lockTTL, logger: c.logger, metrics: c.metrics}
}

// runCommand wraps fn with a span, timing, outcome logging and error mapping.
// A partial result from fn is returned alongside its error.
func runCommand[T any](ctx context.Context, c *core, command string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "command."+command,
		trace.WithAttributes(tracing.CommandSpanAttributes(command, tenant.GetTenantID(ctx), nil)...))
	defer span.End()

	result, err := fn(ctx)
	err = MapError(err)
	duration := time.Since(start)
	log := c.logger.WithContext(ctx).WithOperation(command)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.RecordCommand(command, errorCode(err), duration)
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.HTTPStatus < 500 {
			log.Warn("Command rejected", "code", appErr.Code, "error", err)
		} else {
			log.Error("Command failed", "error", err)
		}
		return result, err
	}

	c.metrics.RecordCommand(command, "success", duration)
	c.logger.Performance(ctx, command, duration, true, nil)
	return result, nil
}

// authorize reads the caller's tenant and checks that resourceTenantID, when
// given, belongs to it.
func authorize(ctx context.Context, resourceTenantID string) (*tenant.Context, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if resourceTenantID != "" {
		if err := tc.ValidateOwnership(resourceTenantID); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

func (c *core) meta(tc *tenant.Context, origin Origin) domain.Meta {
	actor := origin.ActorID
	if actor == "" {
		actor = tc.ActorID
	}
	return domain.NewMeta(actor, origin.StationID, c.now())
}

// loadLpn folds the LPN stream and checks tenant ownership. A missing LPN
// fails with ErrNotFound.
func (c *core) loadLpn(ctx context.Context, tc *tenant.Context, lpnID string) (domain.Lpn, error) {
	records, err := c.store.GetEvents(ctx, domain.LpnStreamID(lpnID))
	if err != nil {
		return domain.Lpn{}, err
	}
	l, err := domain.LoadLpn(records)
	if err != nil {
		return domain.Lpn{}, err
	}
	if !l.Exists() {
		return domain.Lpn{}, &notFoundError{kind: "lpn", id: lpnID}
	}
	if err := tc.ValidateOwnership(l.TenantID); err != nil {
		return domain.Lpn{}, err
	}
	return l, nil
}

func (c *core) loadLocation(ctx context.Context, code string) (domain.Location, error) {
	records, err := c.store.GetEvents(ctx, domain.LocationStreamID(code))
	if err != nil {
		return domain.Location{}, err
	}
	return domain.LoadLocation(records)
}

func (c *core) loadOrder(ctx context.Context, orderID string) (domain.OrderAllocation, error) {
	records, err := c.store.GetEvents(ctx, domain.OrderStreamID(orderID))
	if err != nil {
		return domain.OrderAllocation{}, err
	}
	return domain.LoadOrderAllocation(orderID, records)
}

type notFoundError struct {
	kind, id string
}

func (e *notFoundError) Error() string { return e.kind + " " + e.id + " not found" }
func (e *notFoundError) Unwrap() error { return domain.ErrNotFound }

// changeSet collects the batches of one command. Streams without events are
// dropped.
type changeSet struct {
	batches []domain.EventStreamBatch
	lpns    []domain.Lpn
}

func (cs *changeSet) addLpn(expected int64, next domain.Lpn, events []domain.LpnEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := domain.NewBatch(domain.LpnStreamID(next.ID), expected, events)
	if err != nil {
		return err
	}
	next.Version = expected + int64(len(events))
	cs.batches = append(cs.batches, batch)
	cs.lpns = append(cs.lpns, next)
	return nil
}

func (cs *changeSet) addLocation(prev, next domain.Location, events []domain.LocationEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := domain.NewBatch(domain.LocationStreamID(next.Code), prev.Version, events)
	if err != nil {
		return err
	}
	cs.batches = append(cs.batches, batch)
	return nil
}

func (cs *changeSet) addOrder(prev domain.OrderAllocation, events []domain.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := domain.NewBatch(domain.OrderStreamID(prev.OrderID), prev.Version, events)
	if err != nil {
		return err
	}
	cs.batches = append(cs.batches, batch)
	return nil
}

// commit persists the change set. A single stream goes through AppendEvents,
// several through one atomic SaveBatch. Committed events are then published
// and projected; neither can fail the command.
func (c *core) commit(ctx context.Context, cs *changeSet) error {
	if len(cs.batches) == 0 {
		return nil
	}

	var err error
	if len(cs.batches) == 1 {
		b := cs.batches[0]
		err = c.store.AppendEvents(ctx, b.StreamID, b.ExpectedVersion, b.Events)
	} else {
		err = c.store.SaveBatch(ctx, cs.batches)
	}
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			c.metrics.RecordConcurrencyConflict(domain.StreamType(conflict.StreamID))
		}
		return err
	}

	records := make([]domain.EventRecord, 0)
	for _, b := range cs.batches {
		c.metrics.RecordEventsAppended(domain.StreamType(b.StreamID), len(b.Events))
		for i, rec := range b.Events {
			rec.Version = b.ExpectedVersion + int64(i) + 1
			records = append(records, rec)
		}
	}

	c.publish(ctx, records)
	c.projector.Project(ctx, cs.lpns...)
	return nil
}

// publish hands committed records to the bus. Failures are logged only.
func (c *core) publish(ctx context.Context, records []domain.EventRecord) {
	if c.publisher == nil || len(records) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, records); err != nil {
		c.logger.WithContext(ctx).Warn("Failed to publish committed events", "count", len(records), "error", err)
	}
}

// mutateLpn runs a single-LPN command under its lock and appends the result.
func (c *core) mutateLpn(ctx context.Context, tc *tenant.Context, lpnID string, mutate func(domain.Lpn) (domain.Lpn, []domain.LpnEvent, error)) (domain.Lpn, error) {
	scope := c.scope()
	defer scope.release(ctx)
	if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{lpnID}}); err != nil {
		return domain.Lpn{}, err
	}

	lpn, err := c.loadLpn(ctx, tc, lpnID)
	if err != nil {
		return domain.Lpn{}, err
	}
	next, events, err := mutate(lpn)
	if err != nil {
		return domain.Lpn{}, err
	}

	cs := &changeSet{}
	if err := cs.addLpn(lpn.Version, next, events); err != nil {
		return domain.Lpn{}, err
	}
	if err := c.commit(ctx, cs); err != nil {
		return domain.Lpn{}, err
	}
	if len(cs.lpns) == 0 {
		return lpn, nil
	}
	return cs.lpns[0], nil
}
