// Package printer sends plain-text receipts to a network thermal printer over
// a raw TCP socket (JetDirect, port 9100).
package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const DefaultPort = "9100"

var (
	// ErrPrinterUnavailable covers a missing address, a refused connection or a
	// dropped socket mid-job.
	ErrPrinterUnavailable = errors.New("printer unavailable")
	ErrEmptyReceipt       = errors.New("receipt is empty")
)

var (
	escInit = []byte{0x1b, '@'}
	escCut  = []byte{0x1d, 'V', 'A', 0x03}
)

type dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Client struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	dialer       dialer
	logg         *logger.Logger

	// one job at a time; the printer has no queue of its own
	mu sync.Mutex
}

func New(cfg config.PrinterConfig, logg *logger.Logger) *Client {
	return &Client{
		addr:         normalizeAddr(cfg.Addr),
		dialTimeout:  cfg.DialTimeout,
		writeTimeout: cfg.WriteTimeout,
		dialer:       &net.Dialer{},
		logg:         logg,
	}
}

// Configured reports whether a printer address is set.
func (c *Client) Configured() bool {
	return c != nil && c.addr != ""
}

// Print connects, writes text followed by a paper cut, and disconnects.
func (c *Client) Print(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyReceipt
	}
	if !c.Configured() {
		return fmt.Errorf("%w: no address configured", ErrPrinterUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dialCtx := ctx
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}
	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrPrinterUnavailable, c.addr, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", cerr.Error()), "printer: closing connection failed")
		}
	}()

	if c.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("%w: %v", ErrPrinterUnavailable, err)
		}
	}

	job := make([]byte, 0, len(text)+16)
	job = append(job, escInit...)
	job = append(job, toPrinterText(text)...)
	job = append(job, "\n\n\n"...)
	job = append(job, escCut...)
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("%w: write: %v", ErrPrinterUnavailable, err)
	}

	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "printer", c.addr), "receipt printed")
	}
	return nil
}

func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, DefaultPort)
	}
	return addr
}

// toPrinterText converts line endings to CRLF, which most thermal firmwares expect.
func toPrinterText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "\r\n")
}
