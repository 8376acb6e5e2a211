package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/platform/rpc"
	"github.com/nimbusphere/nimbus/internal/util/netutil"
)

// Kind classifies an orchestration failure. The kind determines the
// process exit status and whether the operator should fix options,
// inspect the deployment, or retry.
type Kind int

const (
	// KindConfig marks invalid or contradictory options. Raised before
	// any remote side effect.
	KindConfig Kind = iota + 1

	// KindPrecondition marks an operation that does not apply to the
	// deployment's current state.
	KindPrecondition

	// KindUnreachable marks a node or service that could not be
	// reached.
	KindUnreachable

	// KindTimeout marks a bounded wait that exceeded its deadline.
	KindTimeout

	// KindRejected marks a request the remote service actively refused.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindPrecondition:
		return "precondition failed"
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	}
	return "error"
}

// Error carries a failure kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Configf builds a configuration error.
func Configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// Preconditionf builds a precondition error.
func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Err: fmt.Errorf(format, args...)}
}

// Unreachablef builds an unreachability error.
func Unreachablef(format string, args ...any) error {
	return &Error{Kind: KindUnreachable, Err: fmt.Errorf(format, args...)}
}

// Timeoutf builds a timeout error.
func Timeoutf(format string, args ...any) error {
	return &Error{Kind: KindTimeout, Err: fmt.Errorf(format, args...)}
}

// Rejectedf builds a remote-rejection error.
func Rejectedf(format string, args ...any) error {
	return &Error{Kind: KindRejected, Err: fmt.Errorf(format, args...)}
}

// HasKind reports whether err carries the given kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ExitCode maps an error to the process exit status. Each kind gets a
// distinguishable code so automation can react without parsing text.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case HasKind(err, KindConfig):
		return 2
	case HasKind(err, KindPrecondition):
		return 3
	case HasKind(err, KindUnreachable):
		return 4
	case HasKind(err, KindTimeout):
		return 5
	case HasKind(err, KindRejected):
		return 6
	}
	return 1
}

// classifyRemote translates a controller or registry client failure. An
// authentication mismatch means the local secret is wrong, a remote
// rejection carries the service's reason, and anything else is treated
// as unreachability.
func classifyRemote(err error, service, host string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rpc.ErrAuthentication) {
		return Configf("%s at %s rejected the deployment secret: %w", service, host, err)
	}
	var remote *rpc.RemoteError
	if errors.As(err, &remote) {
		return Rejectedf("%s at %s: %w", service, host, err)
	}
	return Unreachablef("%s at %s: %w", service, host, err)
}

// classifyWait translates a readiness wait failure into the taxonomy.
func classifyWait(err error, what, host string, port int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, netutil.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Timeoutf("%s did not open %s:%d in time: %w", what, host, port, err)
	}
	return Unreachablef("waiting for %s on %s:%d: %w", what, host, port, err)
}
