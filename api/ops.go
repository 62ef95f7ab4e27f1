package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"labyrinth-server/engine"
	"labyrinth-server/operrors"
)

// OpEnvelope is the generic envelope for all operation requests.
// The Type field is used for routing; Raw holds the full JSON payload.
type OpEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *OpEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// OpResult wraps an engine response with a receipt id for client-side
// correlation and the envelope type echoed back.
type OpResult struct {
	ReceiptID string          `json:"receipt_id"`
	Type      string          `json:"type"`
	Result    engine.Response `json:"result"`
}

// ErrorResult is the failure payload for /api/op.
type ErrorResult struct {
	ReceiptID string `json:"receipt_id"`
	Error     string `json:"error"`
}

// Op accepts one operation envelope, executes it through the engine and
// returns the response. All operations require a bearer token; the signer
// extracted from it becomes the caller identity.
func (h *Handler) Op(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	signer := h.extractSigner(r)
	if signer == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	var envelope OpEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	op, err := decodeOperation(envelope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt := uuid.NewString()
	resp, err := h.Engine.Execute(r.Context(), signer, op)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Printf("Execute %s: %v", envelope.Type, err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResult{ReceiptID: receipt, Error: err.Error()})
		return
	}
	h.writeJSON(w, OpResult{ReceiptID: receipt, Type: envelope.Type, Result: resp})
}

func decodeOperation(envelope OpEnvelope) (engine.Operation, error) {
	switch envelope.Type {
	case "register_player":
		var op engine.RegisterPlayer
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid register_player payload")
		}
		return op, nil
	case "update_profile":
		var op engine.UpdateProfile
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid update_profile payload")
		}
		return op, nil
	case "submit_run":
		var op engine.SubmitRun
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid submit_run payload")
		}
		return op, nil
	case "create_tournament":
		var op engine.CreateTournament
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid create_tournament payload")
		}
		return op, nil
	case "end_tournament":
		var op engine.EndTournament
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid end_tournament payload")
		}
		return op, nil
	case "claim_reward":
		var op engine.ClaimReward
		if err := json.Unmarshal(envelope.Raw, &op); err != nil {
			return nil, errors.New("invalid claim_reward payload")
		}
		return op, nil
	case "bootstrap_tournament":
		return engine.BootstrapTournament{}, nil
	default:
		return nil, errors.New("unknown operation type: " + envelope.Type)
	}
}

// statusForError maps operation sentinels to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, operrors.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, operrors.ErrNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, operrors.ErrTournamentNotFound),
		errors.Is(err, operrors.ErrNoReward):
		return http.StatusNotFound
	case errors.Is(err, operrors.ErrUsernameTaken),
		errors.Is(err, operrors.ErrTournamentNotActive),
		errors.Is(err, operrors.ErrNotYetDue),
		errors.Is(err, operrors.ErrAlreadyEnded),
		errors.Is(err, operrors.ErrMaxAttemptsReached),
		errors.Is(err, operrors.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, operrors.ErrInvalidDuration),
		errors.Is(err, operrors.ErrInvalidTimes),
		errors.Is(err, operrors.ErrUnknownOperation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
