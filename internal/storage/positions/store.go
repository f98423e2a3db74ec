// Package positions persists the bot's position state machine in a WAL so a
// process restart resumes mid-position instead of forgetting a live exposure
// or a resting order.
package positions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
)

const (
	positionKeyPrefix   = "position_"
	walSegmentThreshold = 1000
	walMaxSegments      = 100
	walDirPermissions   = 0o755
)

// record is the persisted position layout. Decimals travel as strings so the
// WAL payload stays exact and human-readable.
type record struct {
	State          string    `json:"state"`
	Side           string    `json:"side,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	RequestedQty   string    `json:"requested_qty,omitempty"`
	RequestedPrice string    `json:"requested_price,omitempty"`
	EntryPrice     string    `json:"entry_price,omitempty"`
	Quantity       string    `json:"quantity,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is a WAL-backed durable position record for one pair.
type Store struct {
	wal *gowal.Wal
	key string
	l   *zap.Logger
}

// NewStore opens (or creates) the WAL for the given pair under dir.
func NewStore(dir string, pair domain.Pair, l *zap.Logger) (*Store, error) {
	if l == nil {
		l = zap.NewNop()
	}

	walDir := filepath.Join(dir, pair.String())
	if err := os.MkdirAll(walDir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", walDir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              walDir,
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open position WAL")
	}

	return &Store{
		wal: wal,
		key: fmt.Sprintf("%s%s", positionKeyPrefix, pair.String()),
		l:   l,
	}, nil
}

// Save appends the position to the WAL. Called synchronously after every
// confirmed state transition; the transition is not complete until this
// returns.
func (s *Store) Save(p domain.Position) error {
	rec := record{
		State:     string(p.State),
		Side:      string(p.Side),
		OrderID:   p.OrderID,
		UpdatedAt: p.UpdatedAt,
	}
	if p.RequestedQty.IsPositive() {
		rec.RequestedQty = p.RequestedQty.String()
	}
	if p.RequestedPrice.IsPositive() {
		rec.RequestedPrice = p.RequestedPrice.String()
	}
	if p.EntryPrice.IsPositive() {
		rec.EntryPrice = p.EntryPrice.String()
	}
	if p.Quantity.IsPositive() {
		rec.Quantity = p.Quantity.String()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to marshal position record")
	}

	return s.wal.Write(s.wal.CurrentIndex()+1, s.key, data)
}

// Load replays the WAL and returns the latest persisted position. A missing
// or unreadable record falls back to Flat: assuming no position avoids an
// unintended duplicate buy, at the cost of a possibly orphaned position the
// operator must reconcile manually.
func (s *Store) Load() (domain.Position, error) {
	var latest []byte
	for msg := range s.wal.Iterator() {
		if msg.Key == s.key {
			latest = msg.Value
		}
	}

	if latest == nil {
		return domain.NewFlatPosition(), nil
	}

	pos, err := s.decode(latest)
	if err != nil {
		s.l.Error("persisted position state is corrupted, assuming Flat; "+
			"verify exchange balances and open orders manually",
			zap.Error(err))
		return domain.NewFlatPosition(), nil
	}

	return pos, nil
}

func (s *Store) decode(data []byte) (domain.Position, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Position{}, errors.Wrap(err, "failed to unmarshal position record")
	}

	pos := domain.Position{
		State:     domain.PositionState(rec.State),
		Side:      domain.OrderSide(rec.Side),
		OrderID:   rec.OrderID,
		UpdatedAt: rec.UpdatedAt,
	}

	switch pos.State {
	case domain.StateFlat, domain.StateOrderPending, domain.StateOpen:
	default:
		return domain.Position{}, errors.Errorf("unknown position state %q", rec.State)
	}
	if pos.State == domain.StateOrderPending && pos.OrderID == "" {
		return domain.Position{}, errors.New("pending state without order id")
	}

	var err error
	if pos.RequestedQty, err = parseDecimal(rec.RequestedQty); err != nil {
		return domain.Position{}, errors.Wrap(err, "requested_qty")
	}
	if pos.RequestedPrice, err = parseDecimal(rec.RequestedPrice); err != nil {
		return domain.Position{}, errors.Wrap(err, "requested_price")
	}
	if pos.EntryPrice, err = parseDecimal(rec.EntryPrice); err != nil {
		return domain.Position{}, errors.Wrap(err, "entry_price")
	}
	if pos.Quantity, err = parseDecimal(rec.Quantity); err != nil {
		return domain.Position{}, errors.Wrap(err, "quantity")
	}

	return pos, nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	return s.wal.Close()
}

func parseDecimal(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}
