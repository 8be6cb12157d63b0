package service

import (
	"context"

	"github.com/google/uuid"

	"rifa/internal/number"
	"rifa/internal/platform/metrics"
	"rifa/internal/raffle"
	"rifa/internal/stats"
	pkgerrors "rifa/pkg/domain-errors"
	"rifa/pkg/requestcontext"
	"rifa/pkg/shortid"
)

// Store persists raffle configuration.
type Store interface {
	Insert(ctx context.Context, r raffle.Raffle) error
	Update(ctx context.Context, r raffle.Raffle) error
	GetByShortID(ctx context.Context, shortID string) (raffle.Raffle, error)
	List(ctx context.Context) ([]raffle.Raffle, error)
	ShortIDExists(ctx context.Context, shortID string) (bool, error)
}

// TicketSource exposes the slice of ticket state the raffle module needs.
// It is implemented by the ticket store; depending on an interface here
// keeps the package dependency one-way.
type TicketSource interface {
	SummariesByRaffle(ctx context.Context, raffleID uuid.UUID) ([]stats.TicketSummary, error)
	HasActiveTickets(ctx context.Context, raffleID uuid.UUID) (bool, error)
}

// Stores bundles the tx-scoped stores a raffle unit of work touches.
type Stores struct {
	Raffles Store
	Numbers number.Registry
}

// TxRunner executes fn atomically against tx-scoped stores.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Stores) error) error
}

const (
	minDigits = 1
	maxDigits = 6

	shortIDAttempts = 5
)

// Service owns raffle creation, partial updates and availability reads.
type Service struct {
	tx      TxRunner
	raffles Store
	numbers number.Reader
	tickets TicketSource
	metrics *metrics.Metrics
}

func NewService(tx TxRunner, raffles Store, numbers number.Reader, tickets TicketSource, m *metrics.Metrics) *Service {
	return &Service{tx: tx, raffles: raffles, numbers: numbers, tickets: tickets, metrics: m}
}

// Create validates the configuration, allocates a unique short code and
// persists the raffle together with its excluded-number rows.
func (s *Service) Create(ctx context.Context, req raffle.CreateRequest) (raffle.WithStats, error) {
	if err := validateStructure(req.DigitsPerNumber, req.NumbersPerTicket, req.ExcludedNumbers); err != nil {
		return raffle.WithStats{}, err
	}
	if req.Name == "" {
		return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeBadRequest, "name is required")
	}
	if req.Price < 0 {
		return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeBadRequest, "price must not be negative")
	}
	if req.EndDate.IsZero() {
		return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeBadRequest, "end_date is required")
	}

	shortID, err := s.uniqueShortID(ctx)
	if err != nil {
		return raffle.WithStats{}, err
	}

	r := raffle.Raffle{
		ID:               uuid.New(),
		ShortID:          shortID,
		Name:             req.Name,
		Description:      req.Description,
		DigitsPerNumber:  req.DigitsPerNumber,
		NumbersPerTicket: req.NumbersPerTicket,
		ExcludedNumbers:  normalizeExcluded(req.ExcludedNumbers),
		Price:            req.Price,
		PrizeCost:        req.PrizeCost,
		Status:           "open",
		ImageURL:         req.ImageURL,
		StartDate:        requestcontext.Now(ctx),
		EndDate:          req.EndDate,
	}
	if userID := requestcontext.UserID(ctx); userID != "" {
		if ownerID, err := uuid.Parse(userID); err == nil {
			r.OwnerID = &ownerID
		}
	}

	err = s.tx.RunInTx(ctx, func(st Stores) error {
		if err := st.Raffles.Insert(ctx, r); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "insert raffle")
		}
		if err := st.Numbers.SeedExcluded(ctx, r.ID, r.ExcludedNumbers); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "seed excluded numbers")
		}
		return nil
	})
	if err != nil {
		return raffle.WithStats{}, err
	}
	if s.metrics != nil {
		s.metrics.RafflesCreated.Inc()
	}

	return raffle.WithStats{Raffle: r, Stats: raffle.Stats{
		TotalNumbers: stats.TotalPackages(r.DigitsPerNumber, len(r.ExcludedNumbers), r.NumbersPerTicket),
	}}, nil
}

// Update applies a partial update. Structural fields (digits, package size,
// exclusions) are frozen once any non-cancelled ticket exists; changing them
// on a fresh raffle rebuilds the excluded-number rows.
func (s *Service) Update(ctx context.Context, shortID string, req raffle.UpdateRequest) (raffle.WithStats, error) {
	r, err := s.raffles.GetByShortID(ctx, shortID)
	if err != nil {
		return raffle.WithStats{}, err
	}

	if req.TouchesStructure() {
		has, err := s.tickets.HasActiveTickets(ctx, r.ID)
		if err != nil {
			return raffle.WithStats{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check existing tickets")
		}
		if has {
			return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeInvalidState, "raffle structure cannot change once tickets exist")
		}
	}

	if req.Name.Set {
		if req.Name.Value == "" {
			return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeBadRequest, "name must not be empty")
		}
		r.Name = req.Name.Value
	}
	if req.Description.Set {
		r.Description = req.Description.Value
	}
	if req.Price.Set {
		if req.Price.Value < 0 {
			return raffle.WithStats{}, pkgerrors.New(pkgerrors.CodeBadRequest, "price must not be negative")
		}
		r.Price = req.Price.Value
	}
	if req.PrizeCost.Set {
		r.PrizeCost = req.PrizeCost.Value
	}
	if req.Status.Set {
		r.Status = req.Status.Value
	}
	if req.ImageURL.Set {
		r.ImageURL = req.ImageURL.Value
	}
	if req.EndDate.Set {
		r.EndDate = req.EndDate.Value
	}
	if req.DigitsPerNumber.Set {
		r.DigitsPerNumber = req.DigitsPerNumber.Value
	}
	if req.NumbersPerTicket.Set {
		r.NumbersPerTicket = req.NumbersPerTicket.Value
	}
	if req.ExcludedNumbers.Set {
		r.ExcludedNumbers = normalizeExcluded(req.ExcludedNumbers.Value)
	}
	if err := validateStructure(r.DigitsPerNumber, r.NumbersPerTicket, r.ExcludedNumbers); err != nil {
		return raffle.WithStats{}, err
	}

	if req.TouchesStructure() {
		err = s.tx.RunInTx(ctx, func(st Stores) error {
			if err := st.Raffles.Update(ctx, r); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "update raffle")
			}
			if err := st.Numbers.ResetCatalog(ctx, r.ID); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reset number catalogue")
			}
			if err := st.Numbers.SeedExcluded(ctx, r.ID, r.ExcludedNumbers); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "seed excluded numbers")
			}
			return nil
		})
	} else {
		err = pkgerrors.Wrap(s.raffles.Update(ctx, r), pkgerrors.CodeInternal, "update raffle")
	}
	if err != nil {
		return raffle.WithStats{}, err
	}
	return s.withStats(ctx, r, stats.CountClaimed)
}

// Get returns one raffle with detail-view aggregates, which count pending
// tickets as sold so sellers see claim progress.
func (s *Service) Get(ctx context.Context, shortID string) (raffle.WithStats, error) {
	r, err := s.raffles.GetByShortID(ctx, shortID)
	if err != nil {
		return raffle.WithStats{}, err
	}
	return s.withStats(ctx, r, stats.CountClaimed)
}

// List returns every raffle with list-view aggregates, which count only
// paid tickets.
func (s *Service) List(ctx context.Context) ([]raffle.WithStats, error) {
	raffles, err := s.raffles.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]raffle.WithStats, 0, len(raffles))
	for _, r := range raffles {
		ws, err := s.withStats(ctx, r, stats.CountPaid)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// CheckNumber reports the current status of one number. The answer is
// advisory; ticket creation re-checks under row locks.
func (s *Service) CheckNumber(ctx context.Context, shortID, value string) (number.Status, error) {
	r, err := s.raffles.GetByShortID(ctx, shortID)
	if err != nil {
		return "", err
	}
	if !number.Valid(value, r.DigitsPerNumber) {
		return "", pkgerrors.Newf(pkgerrors.CodeBadRequest, "number must be exactly %d digits", r.DigitsPerNumber)
	}
	status, err := s.numbers.Lookup(ctx, r.ID, value)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "lookup number")
	}
	return status, nil
}

// RandomNumbers picks count currently free numbers at random. Fewer free
// numbers than requested is an insufficient-availability failure, not a
// short result.
func (s *Service) RandomNumbers(ctx context.Context, shortID string, count int) ([]string, error) {
	r, err := s.raffles.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = r.NumbersPerTicket
	}
	values, err := s.numbers.RandomAvailable(ctx, r.ID, r.DigitsPerNumber, r.ExcludedNumbers, count)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "pick random numbers")
	}
	if len(values) < count {
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientAvailability, "only %d numbers available, %d requested", len(values), count)
	}
	return values, nil
}

func (s *Service) withStats(ctx context.Context, r raffle.Raffle, rule stats.CountRule) (raffle.WithStats, error) {
	summaries, err := s.tickets.SummariesByRaffle(ctx, r.ID)
	if err != nil {
		return raffle.WithStats{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load ticket summaries")
	}
	return raffle.WithStats{Raffle: r, Stats: raffle.Stats{
		TotalNumbers: stats.TotalPackages(r.DigitsPerNumber, len(r.ExcludedNumbers), r.NumbersPerTicket),
		TicketsSold:  stats.TicketsSold(summaries, rule),
		Participants: stats.Participants(summaries, rule),
	}}, nil
}

func (s *Service) uniqueShortID(ctx context.Context) (string, error) {
	for i := 0; i < shortIDAttempts; i++ {
		code, err := shortid.New()
		if err != nil {
			return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "generate short id")
		}
		exists, err := s.raffles.ShortIDExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check short id")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique short id")
}

// validateStructure enforces the arithmetic that makes a raffle sellable:
// digit width bounds, well-formed unique exclusions of the same width, and
// exactly enough exclusions that the remaining universe divides into whole
// tickets.
func validateStructure(digits, perTicket int, excluded []string) error {
	if digits < minDigits || digits > maxDigits {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "digits_per_number must be between %d and %d", minDigits, maxDigits)
	}
	if perTicket <= 0 {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "numbers_per_ticket must be positive")
	}
	seen := make(map[string]bool, len(excluded))
	for _, v := range excluded {
		if !number.Valid(v, digits) {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "excluded number %q must be exactly %d digits", v, digits)
		}
		if seen[v] {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "excluded number %q is duplicated", v)
		}
		seen[v] = true
	}
	if required := stats.SellableUniverse(digits, 0) % perTicket; len(excluded) != required {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest,
			"exactly %d numbers must be excluded for a universe of %d and tickets of %d, got %d",
			required, stats.SellableUniverse(digits, 0), perTicket, len(excluded))
	}
	return nil
}

func normalizeExcluded(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
