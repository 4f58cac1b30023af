package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
)

func TestPrintWritesJobAndCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	client := New(config.PrinterConfig{Addr: ln.Addr().String(), DialTimeout: time.Second, WriteTimeout: time.Second}, nil)
	require.NoError(t, client.Print(context.Background(), "HELLO\nTOTAL 25.00\n"))

	select {
	case data := <-received:
		assert.True(t, bytes.HasPrefix(data, escInit))
		assert.True(t, bytes.HasSuffix(data, escCut))
		assert.Contains(t, string(data), "HELLO\r\nTOTAL 25.00\r\n")
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received the job")
	}
}

func TestPrintRejectsEmptyReceipt(t *testing.T) {
	client := New(config.PrinterConfig{Addr: "127.0.0.1:9"}, nil)
	assert.ErrorIs(t, client.Print(context.Background(), "  \n"), ErrEmptyReceipt)
}

func TestPrintUnavailable(t *testing.T) {
	unconfigured := New(config.PrinterConfig{}, nil)
	assert.False(t, unconfigured.Configured())
	assert.ErrorIs(t, unconfigured.Print(context.Background(), "x"), ErrPrinterUnavailable)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	closed := New(config.PrinterConfig{Addr: addr, DialTimeout: 200 * time.Millisecond}, nil)
	err = closed.Print(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrPrinterUnavailable), "got %v", err)
}

func TestNormalizeAddrAddsDefaultPort(t *testing.T) {
	assert.Equal(t, "192.168.1.50:9100", normalizeAddr(" 192.168.1.50 "))
	assert.Equal(t, "printer.local:9101", normalizeAddr("printer.local:9101"))
	assert.Equal(t, "", normalizeAddr(""))
}
