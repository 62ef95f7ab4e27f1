package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
	"labyrinth-server/tournament"
)

// fakeClock returns a fixed timestamp advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now model.Timestamp
}

func (c *fakeClock) Now() model.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d model.Timestamp) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(ev Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *capturePublisher) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

const startTime = model.Timestamp(1_700_000_000_000_000)

func testParams() tournament.BootstrapParams {
	return tournament.BootstrapParams{
		Title:        "Labyrinth Legends Championship",
		Difficulty:   model.DifficultyMedium,
		DurationDays: 15,
		XPRewardPool: 10_000,
	}
}

func startEngine(t *testing.T) (*Engine, *fakeClock, *capturePublisher, context.CancelFunc) {
	t.Helper()
	clock := &fakeClock{now: startTime}
	pub := &capturePublisher{}
	eng := New(storage.NewMemory(), clock, testParams(), pub)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	return eng, clock, pub, cancel
}

func testWalletHex(b byte) string {
	var w model.Wallet
	w[0] = b
	return w.Hex()
}

func TestEngineBootstrapAndSubmit(t *testing.T) {
	eng, _, pub, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	resp, err := eng.Execute(ctx, "system", BootstrapTournament{})
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	boot, ok := resp.(TournamentBootstrapped)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	if boot.ID != 1 || boot.AlreadyExisted {
		t.Errorf("bootstrap response: %+v", boot)
	}

	resp, err = eng.Execute(ctx, testWalletHex(1), SubmitRun{TournamentID: 1, TimeMS: 60_000, Completed: true})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	run, ok := resp.(RunSubmitted)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	if run.RunID != 1 || run.XPEarned != 250 || !run.NewBest || run.Rank != 1 {
		t.Errorf("run response: %+v", run)
	}

	events := pub.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != EventRunSubmitted || ev.Run == nil || ev.Run.ID != 1 {
		t.Errorf("event: %+v", ev)
	}
	if len(ev.Leaderboard) != 1 || ev.Leaderboard[0].Rank != 1 {
		t.Errorf("event board: %+v", ev.Leaderboard)
	}
}

func TestEngineRejectsWithoutEventOrState(t *testing.T) {
	eng, _, pub, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	if _, err := eng.Execute(ctx, "system", BootstrapTournament{}); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	_, err := eng.Execute(ctx, testWalletHex(1), SubmitRun{TournamentID: 42})
	if !errors.Is(err, operrors.ErrTournamentNotFound) {
		t.Fatalf("err = %v, want ErrTournamentNotFound", err)
	}
	if len(pub.all()) != 0 {
		t.Errorf("failed operation published events")
	}

	// The failed submission left no run behind.
	err = eng.View(ctx, func(tx storage.Tx) error {
		if next, _ := storage.GetCounter(ctx, tx, storage.RegNextRunID); next != 1 {
			t.Errorf("run counter = %d, want 1", next)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestEngineEndTournamentEvent(t *testing.T) {
	eng, clock, pub, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	if _, err := eng.Execute(ctx, "system", BootstrapTournament{}); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if _, err := eng.Execute(ctx, testWalletHex(1), SubmitRun{TournamentID: 1, TimeMS: 55_000, Completed: true}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	clock.advance(15 * tournament.MicrosPerDay)
	resp, err := eng.Execute(ctx, "anyone", EndTournament{TournamentID: 1})
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	ended := resp.(TournamentEnded)
	if ended.WinnerCount != 1 {
		t.Errorf("winner count = %d, want 1", ended.WinnerCount)
	}

	events := pub.all()
	last := events[len(events)-1]
	if last.Type != EventTournamentEnded || last.Tournament == nil {
		t.Fatalf("last event: %+v", last)
	}
	if last.Tournament.Status != model.StatusEnded || last.WinnerCount != 1 {
		t.Errorf("ended event payload: %+v", last)
	}
}

func TestEngineUnknownOperation(t *testing.T) {
	eng, _, _, cancel := startEngine(t)
	defer cancel()

	type bogus struct{ Operation }
	_, err := eng.Execute(context.Background(), "x", bogus{})
	if !errors.Is(err, operrors.ErrUnknownOperation) {
		t.Errorf("err = %v, want ErrUnknownOperation", err)
	}
}

func TestEngineUpdateProfileAndClaim(t *testing.T) {
	eng, clock, _, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	if _, err := eng.Execute(ctx, "system", BootstrapTournament{}); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	signer := testWalletHex(7)
	if _, err := eng.Execute(ctx, signer, SubmitRun{TournamentID: 1, TimeMS: 48_000, Completed: true}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	resp, err := eng.Execute(ctx, signer, UpdateProfile{Username: "labyrinth_queen"})
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if _, ok := resp.(ProfileUpdated); !ok {
		t.Fatalf("unexpected response type %T", resp)
	}

	clock.advance(15 * tournament.MicrosPerDay)
	if _, err := eng.Execute(ctx, "anyone", EndTournament{TournamentID: 1}); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	resp, err = eng.Execute(ctx, signer, ClaimReward{TournamentID: 1})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	claimed := resp.(RewardClaimed)
	if claimed.XPAmount != 4000 {
		t.Errorf("claimed amount = %d, want 4000", claimed.XPAmount)
	}

	if _, err := eng.Execute(ctx, signer, ClaimReward{TournamentID: 1}); !errors.Is(err, operrors.ErrAlreadyClaimed) {
		t.Errorf("second claim err = %v, want ErrAlreadyClaimed", err)
	}
}
