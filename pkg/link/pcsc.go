package link

import (
	"errors"
	"fmt"

	"github.com/ebfe/scard"
	"github.com/gregLibert/ese-session/pkg/ese"
	"github.com/pion/logging"
)

// PC/SC ACCESS:
// The device identifier names a reader as listed by the PC/SC daemon. An
// empty identifier or "*" picks the first reader. The card is connected in
// shared mode with T=1 preferred, and left powered on close so other
// applications keep their state on the secure element.

// Card is the subset of *scard.Card used by the link.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Context is the subset of a PC/SC context used by the link.
type Context interface {
	ListReaders() ([]string, error)
	Connect(reader string) (Card, error)
	Release() error
}

// pcscContext adapts *scard.Context to Context.
type pcscContext struct {
	ctx *scard.Context
}

// EstablishContext opens a PC/SC context on the local daemon.
func EstablishContext() (Context, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, err
	}
	return pcscContext{ctx: ctx}, nil
}

func (p pcscContext) ListReaders() ([]string, error) {
	return p.ctx.ListReaders()
}

func (p pcscContext) Connect(reader string) (Card, error) {
	card, err := p.ctx.Connect(reader, scard.ShareShared, scard.ProtocolT1|scard.ProtocolT0)
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (p pcscContext) Release() error {
	return p.ctx.Release()
}

// PCSCDriver opens secure elements exposed as PC/SC readers.
type PCSCDriver struct {
	// Params are reported to the session. Zero values take DefaultIFSC and DefaultIFSD.
	Params ese.Params

	// EstablishContext creates the PC/SC context.
	// Default: EstablishContext
	EstablishContext func() (Context, error)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Open implements ese.Driver.
func (d PCSCDriver) Open(reader string) (ese.Link, error) {
	establish := d.EstablishContext
	if establish == nil {
		establish = EstablishContext
	}

	var log logging.LeveledLogger
	if d.LoggerFactory != nil {
		log = d.LoggerFactory.NewLogger("link-pcsc")
	}

	ctx, err := establish()
	if err != nil {
		return nil, fmt.Errorf("establish context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("list readers: %w", err), ctx.Release())
	}

	name, ok := pickReader(readers, reader)
	if !ok {
		return nil, errors.Join(fmt.Errorf("%w: %q among %q", ErrNoReader, reader, readers), ctx.Release())
	}

	card, err := ctx.Connect(name)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect %s: %w", name, err), ctx.Release())
	}

	if log != nil {
		log.Infof("connected to reader %s", name)
	}

	return NewChain(&pcscExchanger{ctx: ctx, card: card, log: log}, d.Params), nil
}

func pickReader(readers []string, want string) (string, bool) {
	if len(readers) == 0 {
		return "", false
	}
	if want == "" || want == "*" {
		return readers[0], true
	}
	for _, r := range readers {
		if r == want {
			return r, true
		}
	}
	return "", false
}

type pcscExchanger struct {
	ctx  Context
	card Card
	log  logging.LeveledLogger
}

func (p *pcscExchanger) Exchange(apdu []byte) ([]byte, error) {
	if p.log != nil {
		p.log.Tracef("C-APDU %X", apdu)
	}
	rsp, err := p.card.Transmit(apdu)
	if err != nil {
		return nil, fmt.Errorf("transmit: %w", err)
	}
	if p.log != nil {
		p.log.Tracef("R-APDU %X", rsp)
	}
	return rsp, nil
}

func (p *pcscExchanger) Close() error {
	var errs []error
	if err := p.card.Disconnect(scard.LeaveCard); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	if err := p.ctx.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release context: %w", err))
	}
	return errors.Join(errs...)
}
