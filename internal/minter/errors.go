package minter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jfmyers9/wrapped/internal/card"
	"github.com/jfmyers9/wrapped/internal/ledger"
	"github.com/jfmyers9/wrapped/internal/session"
	"github.com/jfmyers9/wrapped/internal/stats"
	"github.com/jfmyers9/wrapped/pkg/pinata"
	"github.com/jfmyers9/wrapped/pkg/spotify"
)

var (
	// ErrMintInProgress is returned when a mint for the same wallet is
	// already running.
	ErrMintInProgress = errors.New("minter: mint already in progress")

	// ErrWrongNetwork is returned when the ledger is connected to a chain
	// other than the configured one.
	ErrWrongNetwork = errors.New("minter: connected to the wrong network")
)

// Kind groups failures by what the user can do about them.
type Kind int

const (
	KindNetwork Kind = iota
	KindAuthentication
	KindAssetLoad
	KindEncoding
	KindLedger
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNetwork:
		return "network"
	case KindAssetLoad:
		return "asset load"
	case KindEncoding:
		return "encoding"
	case KindLedger:
		return "ledger"
	default:
		return "unknown"
	}
}

// StepError is the failure of one pipeline step.
type StepError struct {
	State State
	Kind  Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.State, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Classify maps err, raised while in state, to a Kind.
func Classify(state State, err error) Kind {
	var (
		apiErr   *spotify.Error
		pinErr   *pinata.Error
		imageErr *card.ImageLoadError
		fontErr  *card.FontLoadError
		encErr   *card.EncodeError
	)

	switch {
	case errors.Is(err, stats.ErrNotAuthenticated),
		errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, spotify.ErrNoToken),
		errors.As(err, &apiErr) && apiErr.Unauthorized(),
		errors.As(err, &pinErr) && (pinErr.StatusCode == http.StatusUnauthorized || pinErr.StatusCode == http.StatusForbidden):
		return KindAuthentication
	case errors.As(err, &imageErr), errors.As(err, &fontErr), errors.Is(err, card.ErrCanvasUnavailable):
		return KindAssetLoad
	case errors.As(err, &encErr):
		return KindEncoding
	case errors.Is(err, ErrWrongNetwork), errors.Is(err, ledger.ErrReverted):
		return KindLedger
	}

	switch state {
	case StateBurningOld, StateMinting:
		return KindLedger
	case StateCompositing:
		return KindAssetLoad
	default:
		return KindNetwork
	}
}
