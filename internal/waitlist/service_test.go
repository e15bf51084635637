package waitlist

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/notify"
	"github.com/velvetpaws/groomhub/internal/schedule"
)

type fakeWaitlistStore struct {
	entries map[string]*model.WaitlistEntry
	offers  []model.SlotOffer
	expired bool // simulates everything-due already swept
	booked  []string
}

func newFakeStore(entries ...model.WaitlistEntry) *fakeWaitlistStore {
	s := &fakeWaitlistStore{entries: map[string]*model.WaitlistEntry{}}
	for i := range entries {
		e := entries[i]
		s.entries[e.ID] = &e
	}
	return s
}

func (s *fakeWaitlistStore) ListActiveEntries(_ context.Context, _, _ string) ([]model.WaitlistEntry, error) {
	var out []model.WaitlistEntry
	for _, e := range s.entries {
		if e.Status == model.WaitlistActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeWaitlistStore) GetEntry(_ context.Context, id string) (model.WaitlistEntry, error) {
	return *s.entries[id], nil
}

func (s *fakeWaitlistStore) MarkOffered(_ context.Context, id string) (bool, error) {
	e := s.entries[id]
	if e.Status != model.WaitlistActive {
		return false, nil
	}
	e.Status = model.WaitlistOffered
	return true, nil
}

func (s *fakeWaitlistStore) CreateOffer(_ context.Context, offer model.SlotOffer) error {
	s.offers = append(s.offers, offer)
	return nil
}

func (s *fakeWaitlistStore) LatestPendingOffer(_ context.Context, phone string, _ time.Time) (model.SlotOffer, model.WaitlistEntry, error) {
	for i := len(s.offers) - 1; i >= 0; i-- {
		entry := s.entries[s.offers[i].WaitlistEntryID]
		if entry != nil && entry.CustomerPhone == phone {
			return s.offers[i], *entry, nil
		}
	}
	return model.SlotOffer{}, model.WaitlistEntry{}, ErrNoPendingOffer
}

func (s *fakeWaitlistStore) MarkBooked(_ context.Context, entryID, _ string) error {
	s.entries[entryID].Status = model.WaitlistBooked
	s.booked = append(s.booked, entryID)
	return nil
}

func (s *fakeWaitlistStore) CancelActiveByPhone(_ context.Context, phone string) (int, error) {
	n := 0
	for _, e := range s.entries {
		if e.CustomerPhone == phone && e.Status == model.WaitlistActive {
			e.Status = model.WaitlistCancelled
			n++
		}
	}
	return n, nil
}

func (s *fakeWaitlistStore) ExpireDue(_ context.Context, _ time.Time) (int, int, error) {
	if s.expired {
		return 0, 0, nil
	}
	s.expired = true
	offers, entries := 0, 0
	for _, e := range s.entries {
		if e.Status == model.WaitlistOffered {
			e.Status = model.WaitlistExpired
			entries++
		}
	}
	for i := range s.offers {
		if s.offers[i].Status == model.OfferPending {
			s.offers[i].Status = model.OfferExpired
			offers++
		}
	}
	return offers, entries, nil
}

type fakeBooker struct {
	conflictAfter int // bookings accepted before conflicts start
	calls         int
}

func (b *fakeBooker) BookForWaitlist(_ context.Context, entry model.WaitlistEntry, date, slotTime string) (model.Appointment, error) {
	b.calls++
	if b.calls > b.conflictAfter {
		return model.Appointment{}, schedule.ErrSlotConflict
	}
	return model.Appointment{ID: "apt-" + entry.ID, Status: model.StatusConfirmed}, nil
}

type fakeNotifier struct {
	messages []notify.Message
}

func (n *fakeNotifier) Dispatch(_ context.Context, msg notify.Message) (*model.NotificationRecord, error) {
	n.messages = append(n.messages, msg)
	return &model.NotificationRecord{Status: model.NotificationSent}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func activeEntry(id, phone string, age time.Duration) model.WaitlistEntry {
	return model.WaitlistEntry{
		ID:             id,
		CustomerID:     "cust-" + id,
		CustomerName:   "Customer " + id,
		CustomerPhone:  phone,
		ServiceID:      "svc-1",
		RequestedDate:  "2026-09-07",
		TimePreference: model.PreferAny,
		Status:         model.WaitlistActive,
		CreatedAt:      time.Now().Add(-age),
	}
}

func TestFillSlot_OffersAndNotifies(t *testing.T) {
	store := newFakeStore(
		activeEntry("a", "+15550001", 48*time.Hour),
		activeEntry("b", "+15550002", 24*time.Hour),
	)
	notifier := &fakeNotifier{}
	svc := NewService(store, &fakeBooker{conflictAfter: 99}, notifier, quietLogger(), Config{OfferLimit: 3})

	offers, err := svc.FillSlot(context.Background(), "svc-1", "2026-09-07", "10:00")
	if err != nil {
		t.Fatalf("fill slot failed: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	if len(notifier.messages) != 2 {
		t.Fatalf("expected 2 offer notifications, got %d", len(notifier.messages))
	}
	for _, msg := range notifier.messages {
		if msg.Type != model.NotificationWaitlistOffer || msg.Channel != model.ChannelSMS {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
	for _, e := range store.entries {
		if e.Status != model.WaitlistOffered {
			t.Fatalf("entry %s should be offered, is %s", e.ID, e.Status)
		}
	}
}

type fakeEvents struct {
	offers []model.SlotOffer
}

func (f *fakeEvents) OfferCreated(_ context.Context, offer model.SlotOffer, _ model.WaitlistEntry) error {
	f.offers = append(f.offers, offer)
	return nil
}

func TestFillSlot_StagesOfferEvents(t *testing.T) {
	store := newFakeStore(
		activeEntry("a", "+15550001", 48*time.Hour),
		activeEntry("b", "+15550002", 24*time.Hour),
	)
	events := &fakeEvents{}
	svc := NewService(store, &fakeBooker{conflictAfter: 99}, &fakeNotifier{}, quietLogger(), Config{OfferLimit: 3})
	svc.SetEvents(events)

	offers, err := svc.FillSlot(context.Background(), "svc-1", "2026-09-07", "10:00")
	if err != nil {
		t.Fatalf("fill slot failed: %v", err)
	}
	if len(events.offers) != len(offers) {
		t.Fatalf("expected %d offer events, got %d", len(offers), len(events.offers))
	}
	for _, o := range events.offers {
		if o.SlotDate != "2026-09-07" || o.SlotTime != "10:00" {
			t.Fatalf("offer event carries wrong slot: %+v", o)
		}
	}
}

func TestFillSlot_DoesNotBook(t *testing.T) {
	store := newFakeStore(activeEntry("a", "+15550001", time.Hour))
	booker := &fakeBooker{conflictAfter: 99}
	svc := NewService(store, booker, &fakeNotifier{}, quietLogger(), Config{})

	if _, err := svc.FillSlot(context.Background(), "svc-1", "2026-09-07", "10:00"); err != nil {
		t.Fatalf("fill slot failed: %v", err)
	}
	if booker.calls != 0 {
		t.Fatal("filling a slot must not book anything")
	}
}

func TestAcceptOffer_FirstWriterWins(t *testing.T) {
	store := newFakeStore(
		activeEntry("a", "+15550001", 48*time.Hour),
		activeEntry("b", "+15550002", 24*time.Hour),
	)
	booker := &fakeBooker{conflictAfter: 1}
	svc := NewService(store, booker, &fakeNotifier{}, quietLogger(), Config{})

	if _, err := svc.FillSlot(context.Background(), "svc-1", "2026-09-07", "10:00"); err != nil {
		t.Fatalf("fill slot failed: %v", err)
	}

	first, err := svc.HandleInboundSMS(context.Background(), "+15550001", "YES")
	if err != nil {
		t.Fatalf("first acceptance failed: %v", err)
	}
	if !strings.Contains(first, "booked") {
		t.Fatalf("first acceptor should win the slot, got: %q", first)
	}

	second, err := svc.HandleInboundSMS(context.Background(), "+15550002", "yes")
	if err != nil {
		t.Fatalf("second acceptance errored: %v", err)
	}
	if !strings.Contains(second, "no longer available") {
		t.Fatalf("second acceptor should be told the slot is gone, got: %q", second)
	}
}

func TestHandleInboundSMS_StopAndUnknown(t *testing.T) {
	store := newFakeStore(activeEntry("a", "+15550001", time.Hour))
	svc := NewService(store, &fakeBooker{}, &fakeNotifier{}, quietLogger(), Config{})

	reply, err := svc.HandleInboundSMS(context.Background(), "+15550001", "STOP")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !strings.Contains(reply, "removed") {
		t.Fatalf("unexpected stop reply: %q", reply)
	}
	if store.entries["a"].Status != model.WaitlistCancelled {
		t.Fatal("STOP should cancel active entries")
	}

	reply, err = svc.HandleInboundSMS(context.Background(), "+15550001", "maybe?")
	if err != nil {
		t.Fatalf("unknown reply failed: %v", err)
	}
	if !strings.Contains(reply, "Reply YES") {
		t.Fatalf("unexpected help reply: %q", reply)
	}
}

func TestAcceptOffer_NoPendingOffer(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeBooker{}, &fakeNotifier{}, quietLogger(), Config{})

	reply, err := svc.HandleInboundSMS(context.Background(), "+15559999", "YES")
	if err != nil {
		t.Fatalf("acceptance errored: %v", err)
	}
	if !strings.Contains(reply, "couldn't find") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestExpireSweep_Idempotent(t *testing.T) {
	store := newFakeStore(activeEntry("a", "+15550001", time.Hour))
	svc := NewService(store, &fakeBooker{conflictAfter: 99}, &fakeNotifier{}, quietLogger(), Config{})
	if _, err := svc.FillSlot(context.Background(), "svc-1", "2026-09-07", "10:00"); err != nil {
		t.Fatalf("fill slot failed: %v", err)
	}

	offers, entries, err := svc.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if offers != 1 || entries != 1 {
		t.Fatalf("first sweep should expire the offer and entry, got %d/%d", offers, entries)
	}

	offers, entries, err = svc.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if offers != 0 || entries != 0 {
		t.Fatalf("second sweep must be a no-op, got %d/%d", offers, entries)
	}
}
