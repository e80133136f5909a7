package surface

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/grovetools/cctv/errors"
)

// classify maps a failure during acquisition into the agent's taxonomy: a
// dropped connection is transient, anything the endpoint itself rejected is not.
func classify(stage string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var perr *ProtocolError
	if stderrors.As(err, &perr) {
		return errors.SurfaceProtocol(perr.Method, err).WithDetail("stage", stage)
	}
	if isDisconnect(err) {
		return errors.SurfaceDisconnected(stage, err)
	}
	return errors.SurfaceProtocol(stage, err)
}

func isDisconnect(err error) bool {
	if stderrors.Is(err, ErrConnClosed) ||
		stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, io.ErrUnexpectedEOF) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.EPIPE) ||
		stderrors.Is(err, websocket.ErrBadHandshake) {
		return true
	}
	var closeErr *websocket.CloseError
	return stderrors.As(err, &closeErr)
}
