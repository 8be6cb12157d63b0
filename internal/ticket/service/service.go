//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Notifier,Users
package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"rifa/internal/audit"
	"rifa/internal/number"
	"rifa/internal/platform/metrics"
	"rifa/internal/raffle"
	"rifa/internal/ticket"
	pkgerrors "rifa/pkg/domain-errors"
	"rifa/pkg/requestcontext"
)

// Store persists tickets.
type Store interface {
	Insert(ctx context.Context, t ticket.Ticket) error
	Update(ctx context.Context, t ticket.Ticket) error
	Get(ctx context.Context, id uuid.UUID) (ticket.Ticket, error)
	ListByRaffle(ctx context.Context, raffleID uuid.UUID) ([]ticket.Ticket, error)
	PaidBetween(ctx context.Context, raffleID uuid.UUID, from, to time.Time) ([]ticket.Ticket, error)
}

// RaffleSource resolves raffle configuration for ticket operations.
type RaffleSource interface {
	Get(ctx context.Context, id uuid.UUID) (raffle.Raffle, error)
	GetByShortID(ctx context.Context, shortID string) (raffle.Raffle, error)
}

// Users resolves user ids to display names for the responsible field.
type Users interface {
	Username(ctx context.Context, id uuid.UUID) (string, error)
}

// Notifier tells the buyer their ticket is confirmed. Failures are logged
// and swallowed; notification never blocks or reverts a sale.
type Notifier interface {
	TicketPaid(ctx context.Context, t ticket.Ticket, r raffle.Raffle) error
}

// Stores bundles the tx-scoped stores a ticket unit of work touches. Ticket
// mutation and number claims must land in the same transaction.
type Stores struct {
	Tickets Store
	Numbers number.Registry
}

// TxRunner executes fn atomically against tx-scoped stores.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Stores) error) error
}

// Deps wires a ticket Service.
type Deps struct {
	Tx       TxRunner
	Tickets  Store
	Raffles  RaffleSource
	Users    Users
	Notifier Notifier
	Audit    *audit.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// ExpiryZone is the locale whose end-of-day bounds reported payments.
	ExpiryZone *time.Location
	// Grace bounds unreported pending claims.
	Grace time.Duration
}

// Service owns the ticket lifecycle.
type Service struct {
	tx       TxRunner
	tickets  Store
	raffles  RaffleSource
	users    Users
	notifier Notifier
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	zone     *time.Location
	grace    time.Duration
}

func NewService(d Deps) *Service {
	zone := d.ExpiryZone
	if zone == nil {
		zone = time.UTC
	}
	return &Service{
		tx:       d.Tx,
		tickets:  d.Tickets,
		raffles:  d.Raffles,
		users:    d.Users,
		notifier: d.Notifier,
		audit:    d.Audit,
		metrics:  d.Metrics,
		logger:   d.Logger,
		zone:     zone,
		grace:    d.Grace,
	}
}

// Create sells one ticket: it locks the requested numbers, verifies every
// one is still free, and claims them for the new ticket in a single
// transaction. Any number already reserved, assigned or excluded fails the
// whole request naming that number.
func (s *Service) Create(ctx context.Context, raffleShortID string, req ticket.CreateRequest) (ticket.Ticket, error) {
	start := time.Now()

	r, err := s.raffles.GetByShortID(ctx, raffleShortID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if !r.OpenForSale() {
		return ticket.Ticket{}, pkgerrors.Newf(pkgerrors.CodeInvalidState, "raffle %s is not open for sale", r.ShortID)
	}
	if err := validateCreate(r, req); err != nil {
		return ticket.Ticket{}, err
	}

	status := req.Status
	if status == "" {
		status = ticket.StatusPending
	}

	now := requestcontext.Now(ctx)
	t := ticket.Ticket{
		ID:              uuid.New(),
		RaffleID:        r.ID,
		Status:          status,
		BuyerName:       req.BuyerName,
		BuyerPhone:      req.BuyerPhone,
		PaymentType:     req.PaymentType,
		PaymentDate:     req.PaymentDate,
		NumbersSnapshot: req.Numbers,
		CreatedAt:       now,
	}
	if userID := requestcontext.UserID(ctx); userID != "" {
		if id, err := uuid.Parse(userID); err == nil {
			t.UserID = &id
		}
	}

	var target number.Status
	var expireAt *time.Time
	if status == ticket.StatusPaid {
		target = number.StatusAssigned
		if t.PaymentDate == nil {
			t.PaymentDate = &now
		}
	} else {
		target = number.StatusReserved
		exp := ticket.ReservationExpiry(now, req.PaymentDate, s.zone, s.grace)
		expireAt = &exp
	}

	err = s.tx.RunInTx(ctx, func(st Stores) error {
		locked, err := st.Numbers.LockAndRead(ctx, r.ID, req.Numbers)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "lock numbers")
		}
		for _, n := range locked {
			if n.Status != number.StatusAvailable {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "number %s is not available", n.Value)
			}
		}
		if err := st.Tickets.Insert(ctx, t); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "insert ticket")
		}
		if err := st.Numbers.Claim(ctx, r.ID, req.Numbers, target, t.ID, expireAt); err != nil {
			// The store reports a conflict when another transaction created
			// a row for one of the values after our lock pass saw nothing.
			if pkgerrors.Is(err, pkgerrors.CodeConflict) {
				return err
			}
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "claim numbers")
		}
		return nil
	})
	if err != nil {
		return ticket.Ticket{}, err
	}

	if s.metrics != nil {
		s.metrics.TicketsCreated.WithLabelValues(status).Inc()
		s.metrics.NumbersClaimed.Add(float64(len(req.Numbers)))
		s.metrics.ObserveTicketCreate(start)
	}
	s.emit(ctx, audit.ActionTicketCreated, t)
	if status == ticket.StatusPaid {
		s.notifyPaid(ctx, t, r)
	}

	s.enrich(ctx, &t, r)
	return t, nil
}

// Get returns one ticket enriched with raffle and seller context.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ticket.Ticket, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	r, err := s.raffles.Get(ctx, t.RaffleID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	s.enrich(ctx, &t, r)
	return t, nil
}

// ListByRaffle returns the raffle's tickets, newest first.
func (s *Service) ListByRaffle(ctx context.Context, raffleShortID string) ([]ticket.Ticket, error) {
	r, err := s.raffles.GetByShortID(ctx, raffleShortID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListByRaffle(ctx, r.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list tickets")
	}
	names := map[uuid.UUID]string{}
	for i := range tickets {
		s.enrichCached(ctx, &tickets[i], r, names)
	}
	return tickets, nil
}

// Cancel frees the ticket's numbers and marks it cancelled. Cancelling an
// already-cancelled ticket is a no-op so retries are safe. Only rows still
// owned by this ticket are released; a row re-claimed after an expiry sweep
// belongs to its new ticket.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (ticket.Ticket, error) {
	var out ticket.Ticket
	already := false
	err := s.tx.RunInTx(ctx, func(st Stores) error {
		t, err := st.Tickets.Get(ctx, id)
		if err != nil {
			return err
		}
		if t.Status == ticket.StatusCancelled {
			out, already = t, true
			return nil
		}

		locked, err := st.Numbers.LockAndRead(ctx, t.RaffleID, t.NumbersSnapshot)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "lock numbers")
		}
		var owned []int64
		for _, n := range locked {
			if n.TicketID != nil && *n.TicketID == t.ID {
				owned = append(owned, n.ID)
			}
		}
		if err := st.Numbers.Release(ctx, owned); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "release numbers")
		}

		now := requestcontext.Now(ctx)
		t.Status = ticket.StatusCancelled
		t.UpdatedAt = &now
		if err := st.Tickets.Update(ctx, t); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update ticket")
		}
		out = t
		return nil
	})
	if err != nil {
		return ticket.Ticket{}, err
	}
	if !already {
		if s.metrics != nil {
			s.metrics.TicketsCancelled.Inc()
		}
		s.emit(ctx, audit.ActionTicketCancelled, out)
	}
	return out, nil
}

// ConfirmPayment moves a pending ticket to paid and finalizes its numbers.
// Confirming a non-pending ticket fails; paid numbers no longer expire.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID, paymentType string) (ticket.Ticket, error) {
	if paymentType != "" && !validPaymentType(paymentType) {
		return ticket.Ticket{}, pkgerrors.Newf(pkgerrors.CodeBadRequest, "unknown payment type %q", paymentType)
	}

	var out ticket.Ticket
	err := s.tx.RunInTx(ctx, func(st Stores) error {
		t, err := st.Tickets.Get(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != ticket.StatusPending {
			return pkgerrors.Newf(pkgerrors.CodeInvalidState, "only pending tickets can be confirmed, ticket is %s", t.Status)
		}

		locked, err := st.Numbers.LockAndRead(ctx, t.RaffleID, t.NumbersSnapshot)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "lock numbers")
		}
		var owned []int64
		for _, n := range locked {
			if n.TicketID != nil && *n.TicketID == t.ID {
				owned = append(owned, n.ID)
			}
		}
		if err := st.Numbers.Finalize(ctx, owned); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "finalize numbers")
		}

		now := requestcontext.Now(ctx)
		t.Status = ticket.StatusPaid
		t.PaymentDate = &now
		t.UpdatedAt = &now
		if paymentType != "" {
			t.PaymentType = paymentType
		}
		if err := st.Tickets.Update(ctx, t); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update ticket")
		}
		out = t
		return nil
	})
	if err != nil {
		return ticket.Ticket{}, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsConfirmed.Inc()
	}
	s.emit(ctx, audit.ActionPaymentConfirmed, out)
	if r, err := s.raffles.Get(ctx, out.RaffleID); err == nil {
		s.notifyPaid(ctx, out, r)
		s.enrich(ctx, &out, r)
	}
	return out, nil
}

// MonthlySales aggregates paid tickets by payment day over one calendar
// month in the raffle's locale.
func (s *Service) MonthlySales(ctx context.Context, raffleShortID string, year int, month time.Month) (ticket.SalesSummary, error) {
	r, err := s.raffles.GetByShortID(ctx, raffleShortID)
	if err != nil {
		return ticket.SalesSummary{}, err
	}
	if month < time.January || month > time.December {
		return ticket.SalesSummary{}, pkgerrors.New(pkgerrors.CodeBadRequest, "month must be between 1 and 12")
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, s.zone)
	to := from.AddDate(0, 1, 0)
	paid, err := s.tickets.PaidBetween(ctx, r.ID, from, to)
	if err != nil {
		return ticket.SalesSummary{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load paid tickets")
	}

	byDay := map[string]*ticket.SalesDay{}
	summary := ticket.SalesSummary{Year: year, Month: int(month)}
	for _, t := range paid {
		if t.PaymentDate == nil {
			continue
		}
		day := t.PaymentDate.In(s.zone).Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &ticket.SalesDay{Date: day}
			byDay[day] = entry
		}
		entry.Tickets++
		entry.Amount += r.Price
		summary.Tickets++
		summary.Amount += r.Price
	}
	for _, entry := range byDay {
		summary.Days = append(summary.Days, *entry)
	}
	sort.Slice(summary.Days, func(i, j int) bool { return summary.Days[i].Date < summary.Days[j].Date })
	return summary, nil
}

// SetProof attaches a payment proof URL to the ticket and returns the URL
// it replaced, if any.
func (s *Service) SetProof(ctx context.Context, id uuid.UUID, url string) (ticket.Ticket, string, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return ticket.Ticket{}, "", err
	}
	previous := t.PaymentProofURL
	now := requestcontext.Now(ctx)
	t.PaymentProofURL = url
	t.UpdatedAt = &now
	if err := s.tickets.Update(ctx, t); err != nil {
		return ticket.Ticket{}, "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update ticket")
	}
	return t, previous, nil
}

// RemoveProof clears the payment proof and returns the removed URL.
func (s *Service) RemoveProof(ctx context.Context, id uuid.UUID) (string, error) {
	_, previous, err := s.SetProof(ctx, id, "")
	return previous, err
}

func (s *Service) enrich(ctx context.Context, t *ticket.Ticket, r raffle.Raffle) {
	s.enrichCached(ctx, t, r, map[uuid.UUID]string{})
}

func (s *Service) enrichCached(ctx context.Context, t *ticket.Ticket, r raffle.Raffle, names map[uuid.UUID]string) {
	t.RaffleName = r.Name
	t.RaffleShortID = r.ShortID
	t.RaffleStatus = r.Status
	t.RafflePrice = r.Price
	t.RaffleEndDate = r.EndDate
	if t.UserID == nil || s.users == nil {
		return
	}
	if name, ok := names[*t.UserID]; ok {
		t.Responsible = name
		return
	}
	name, err := s.users.Username(ctx, *t.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve responsible failed", "user_id", t.UserID.String(), "error", err.Error())
		return
	}
	names[*t.UserID] = name
	t.Responsible = name
}

func (s *Service) emit(ctx context.Context, action string, t ticket.Ticket) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Action:   action,
		RaffleID: t.RaffleID,
		TicketID: t.ID,
		ActorID:  requestcontext.UserID(ctx),
		At:       requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err.Error())
	}
}

func (s *Service) notifyPaid(ctx context.Context, t ticket.Ticket, r raffle.Raffle) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TicketPaid(ctx, t, r); err != nil {
		s.logger.WarnContext(ctx, "payment notification failed",
			"ticket_id", t.ID.String(),
			"buyer_phone", t.BuyerPhone,
			"error", err.Error(),
		)
	}
}

func validateCreate(r raffle.Raffle, req ticket.CreateRequest) error {
	if req.BuyerName == "" {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "buyer_name is required")
	}
	if len(req.Numbers) != r.NumbersPerTicket {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "ticket must claim exactly %d numbers", r.NumbersPerTicket)
	}
	seen := make(map[string]bool, len(req.Numbers))
	for _, v := range req.Numbers {
		if !number.Valid(v, r.DigitsPerNumber) {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "number %q must be exactly %d digits", v, r.DigitsPerNumber)
		}
		if seen[v] {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "number %s is duplicated", v)
		}
		seen[v] = true
	}
	switch req.Status {
	case "", ticket.StatusPending:
	case ticket.StatusPaid:
		if req.PaymentType == "" {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "payment_type is required for paid tickets")
		}
	default:
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "initial status must be %s or %s", ticket.StatusPending, ticket.StatusPaid)
	}
	if req.PaymentType != "" && !validPaymentType(req.PaymentType) {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "unknown payment type %q", req.PaymentType)
	}
	return nil
}

func validPaymentType(pt string) bool {
	return pt == ticket.PaymentCash || pt == ticket.PaymentTransfer
}
