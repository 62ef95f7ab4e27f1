package tournament

import (
	"context"
	"log/slog"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
)

// ResolveWallet maps the caller's signer token to a wallet. An unbound
// signer that is itself a wallet address form is auto-bound on first
// contact, creating a profile with a synthesized username; an unbound
// opaque signer fails with ErrNotRegistered.
func ResolveWallet(ctx context.Context, tx storage.Tx, signer string, now model.Timestamp) (model.Wallet, error) {
	if signer == "" {
		return model.Wallet{}, operrors.ErrNotAuthenticated
	}
	bound, err := storage.GetWalletForSigner(ctx, tx, signer)
	if err != nil {
		return model.Wallet{}, err
	}
	if bound != nil {
		return *bound, nil
	}
	wallet, perr := model.ParseWallet(signer)
	if perr != nil {
		return model.Wallet{}, operrors.ErrNotRegistered
	}
	if err := storage.BindSigner(ctx, tx, signer, wallet); err != nil {
		return model.Wallet{}, err
	}
	if err := ensurePlayer(ctx, tx, wallet, now); err != nil {
		return model.Wallet{}, err
	}
	return wallet, nil
}

// ensurePlayer creates a profile for an auto-bound wallet if none exists.
func ensurePlayer(ctx context.Context, tx storage.Tx, wallet model.Wallet, now model.Timestamp) error {
	existing, err := storage.GetPlayer(ctx, tx, wallet)
	if err != nil || existing != nil {
		return err
	}
	username := wallet.DefaultUsername()
	if owner, err := storage.GetWalletForUsername(ctx, tx, username); err != nil {
		return err
	} else if owner != nil && *owner != wallet {
		// Prefix collision with another wallet; fall back to the full hex.
		username = "Player_" + wallet.Hex()[2:]
	}
	if err := createPlayer(ctx, tx, wallet, username, now); err != nil {
		return err
	}
	slog.Info("auto-registered player", "tag", "registrar", "wallet", wallet, "username", username)
	return nil
}

// Register creates or re-binds a player profile for the payload wallet.
// Registering the same wallet again is idempotent: the existing profile is
// returned unchanged and the caller's signer is (re-)bound to it.
func Register(ctx context.Context, tx storage.Tx, signer string, wallet model.Wallet, username string, now model.Timestamp) (*model.Player, error) {
	if signer == "" {
		return nil, operrors.ErrNotAuthenticated
	}
	owner, err := storage.GetWalletForUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if owner != nil && *owner != wallet {
		return nil, operrors.ErrUsernameTaken
	}

	existing, err := storage.GetPlayer(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := storage.BindSigner(ctx, tx, signer, wallet); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err := createPlayer(ctx, tx, wallet, username, now); err != nil {
		return nil, err
	}
	if err := storage.BindSigner(ctx, tx, signer, wallet); err != nil {
		return nil, err
	}
	slog.Info("player registered", "tag", "registrar", "wallet", wallet, "username", username)
	return storage.GetPlayer(ctx, tx, wallet)
}

func createPlayer(ctx context.Context, tx storage.Tx, wallet model.Wallet, username string, now model.Timestamp) error {
	p := &model.Player{
		Wallet:       wallet,
		Username:     username,
		BestTimeMS:   model.NoTime,
		RegisteredAt: now,
		LastActive:   now,
	}
	if err := storage.PutPlayer(ctx, tx, p); err != nil {
		return err
	}
	if err := storage.PutUsernameIndex(ctx, tx, username, wallet); err != nil {
		return err
	}
	count, err := storage.GetCounter(ctx, tx, storage.RegPlayerCount)
	if err != nil {
		return err
	}
	return storage.SetCounter(ctx, tx, storage.RegPlayerCount, count+1)
}

// UpdateProfile renames an existing player. Historical username snapshots
// on runs and leaderboard entries are deliberately left untouched.
func UpdateProfile(ctx context.Context, tx storage.Tx, wallet model.Wallet, username string, now model.Timestamp) (*model.Player, error) {
	player, err := storage.GetPlayer(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, operrors.ErrNotRegistered
	}
	if player.Username == username {
		return player, nil
	}
	owner, err := storage.GetWalletForUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if owner != nil && *owner != wallet {
		return nil, operrors.ErrUsernameTaken
	}
	if err := storage.DeleteUsernameIndex(ctx, tx, player.Username); err != nil {
		return nil, err
	}
	if err := storage.PutUsernameIndex(ctx, tx, username, wallet); err != nil {
		return nil, err
	}
	player.Username = username
	player.LastActive = now
	if err := storage.PutPlayer(ctx, tx, player); err != nil {
		return nil, err
	}
	return player, nil
}
