// Package engine serializes state-changing operations. Requests enter a
// buffered channel and are applied strictly one at a time, each inside its
// own storage transaction that commits or rolls back as a whole. Committed
// operations publish events to registered subscribers.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
	"labyrinth-server/tournament"
)

// request is one queued operation with its reply channel.
type request struct {
	ctx    context.Context
	signer string
	op     Operation
	reply  chan result
}

type result struct {
	resp Response
	err  error
}

// Engine owns the store and processes operations sequentially.
type Engine struct {
	store      storage.Store
	clock      Clock
	bootstrap  tournament.BootstrapParams
	publishers []Publisher

	requests chan request
	done     chan struct{}
}

// New creates an engine over the store. Publishers registered before Run
// receive an event for every committed state change.
func New(store storage.Store, clock Clock, bootstrap tournament.BootstrapParams, publishers ...Publisher) *Engine {
	return &Engine{
		store:      store,
		clock:      clock,
		bootstrap:  bootstrap,
		publishers: publishers,
		requests:   make(chan request, 64),
		done:       make(chan struct{}),
	}
}

// Run is the serializer loop. It should be run as a goroutine and exits
// when ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requests:
			resp, err := e.apply(req.ctx, req.signer, req.op)
			req.reply <- result{resp: resp, err: err}
		}
	}
}

// Done is closed when the serializer loop has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Execute queues an operation and waits for its outcome. The returned
// error is one of the operrors sentinels (possibly wrapped) for domain
// failures, or a storage error.
func (e *Engine) Execute(ctx context.Context, signer string, op Operation) (Response, error) {
	req := request{ctx: ctx, signer: signer, op: op, reply: make(chan result, 1)}
	select {
	case e.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, errors.New("engine stopped")
	}
	select {
	case res := <-req.reply:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// View runs fn inside a read-only transaction over committed state.
func (e *Engine) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	return fn(tx)
}

// apply runs one operation in one transaction. On success the transaction
// commits and any event is published; on failure everything rolls back.
func (e *Engine) apply(ctx context.Context, signer string, op Operation) (Response, error) {
	now := e.clock.Now()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	resp, event, err := e.dispatch(ctx, tx, signer, op, now)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if event != nil {
		for _, p := range e.publishers {
			p.Publish(*event)
		}
	}
	return resp, nil
}

func (e *Engine) dispatch(ctx context.Context, tx storage.Tx, signer string, op Operation, now model.Timestamp) (Response, *Event, error) {
	switch op := op.(type) {
	case BootstrapTournament:
		t, existed, err := tournament.Bootstrap(ctx, tx, e.bootstrap, now)
		if err != nil {
			return nil, nil, err
		}
		return TournamentBootstrapped{ID: t.ID, EndTime: t.EndTime, AlreadyExisted: existed}, nil, nil

	case RegisterPlayer:
		p, err := tournament.Register(ctx, tx, signer, op.Wallet, op.Username, now)
		if err != nil {
			return nil, nil, err
		}
		return PlayerRegistered{Wallet: p.Wallet}, nil, nil

	case UpdateProfile:
		wallet, err := tournament.ResolveWallet(ctx, tx, signer, now)
		if err != nil {
			return nil, nil, err
		}
		p, err := tournament.UpdateProfile(ctx, tx, wallet, op.Username, now)
		if err != nil {
			return nil, nil, err
		}
		return ProfileUpdated{Wallet: p.Wallet}, nil, nil

	case SubmitRun:
		res, err := tournament.SubmitRun(ctx, tx, signer, tournament.SubmitInput{
			TournamentID:   op.TournamentID,
			TimeMS:         op.TimeMS,
			Score:          op.Score,
			CoinsCollected: op.CoinsCollected,
			Deaths:         op.Deaths,
			Completed:      op.Completed,
		}, now)
		if err != nil {
			return nil, nil, err
		}
		event, err := e.runEvent(ctx, tx, op.TournamentID, res.RunID)
		if err != nil {
			return nil, nil, err
		}
		return RunSubmitted{RunID: res.RunID, XPEarned: res.XPEarned, NewBest: res.NewBest, Rank: res.Rank}, event, nil

	case CreateTournament:
		t, err := tournament.Create(ctx, tx, tournament.CreateInput{
			Title:                op.Title,
			Description:          op.Description,
			MazeSeed:             op.MazeSeed,
			Difficulty:           op.Difficulty,
			DurationDays:         op.DurationDays,
			XPRewardPool:         op.XPRewardPool,
			MaxAttemptsPerPlayer: op.MaxAttemptsPerPlayer,
		}, now)
		if err != nil {
			return nil, nil, err
		}
		event := &Event{Type: EventTournamentCreated, TournamentID: t.ID, Tournament: t}
		return TournamentCreated{ID: t.ID, MazeSeed: t.MazeSeed, EndTime: t.EndTime}, event, nil

	case EndTournament:
		winners, err := tournament.End(ctx, tx, op.TournamentID, now)
		if err != nil {
			return nil, nil, err
		}
		t, err := storage.GetTournament(ctx, tx, op.TournamentID)
		if err != nil {
			return nil, nil, err
		}
		board, err := storage.GetLeaderboard(ctx, tx, op.TournamentID)
		if err != nil {
			return nil, nil, err
		}
		event := &Event{
			Type:         EventTournamentEnded,
			TournamentID: op.TournamentID,
			Tournament:   t,
			Leaderboard:  board,
			WinnerCount:  winners,
		}
		return TournamentEnded{ID: op.TournamentID, WinnerCount: winners}, event, nil

	case ClaimReward:
		wallet, err := tournament.ResolveWallet(ctx, tx, signer, now)
		if err != nil {
			return nil, nil, err
		}
		amount, err := tournament.Claim(ctx, tx, wallet, op.TournamentID)
		if err != nil {
			return nil, nil, err
		}
		return RewardClaimed{TournamentID: op.TournamentID, XPAmount: amount}, nil, nil

	default:
		slog.Warn("rejected unknown operation", "tag", "engine")
		return nil, nil, operrors.ErrUnknownOperation
	}
}

// runEvent assembles the feed event for a committed submission, reading
// the inserted run and the refreshed board back from the same transaction.
func (e *Engine) runEvent(ctx context.Context, tx storage.Tx, tid, runID uint64) (*Event, error) {
	run, err := storage.GetRun(ctx, tx, runID)
	if err != nil {
		return nil, err
	}
	board, err := storage.GetLeaderboard(ctx, tx, tid)
	if err != nil {
		return nil, err
	}
	return &Event{Type: EventRunSubmitted, TournamentID: tid, Run: run, Leaderboard: board}, nil
}
