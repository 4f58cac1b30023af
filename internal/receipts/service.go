package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/printer"
)

type storeLoader interface {
	Get(ctx context.Context) (*storeinfo.StoreInfoDTO, error)
}

type saleLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*transactions.TransactionDTO, error)
}

type customerLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*customers.CustomerDTO, error)
}

type printerClient interface {
	Print(ctx context.Context, text string) error
}

// archiver stores printed text; PutText returns the object URI.
type archiver interface {
	PutText(ctx context.Context, name, body string) (string, error)
}

// Rendered is a receipt ready to print or return to the client.
type Rendered struct {
	Kind          string `json:"kind"`
	InvoiceNumber string `json:"invoice_number"`
	Text          string `json:"text"`
	ArchiveURI    string `json:"archive_uri,omitempty"`
}

type Service interface {
	Sale(ctx context.Context, transactionID uuid.UUID) (*Rendered, error)
	PrintSale(ctx context.Context, transactionID uuid.UUID) (*Rendered, error)
	Intake(ctx context.Context, customerID uuid.UUID) (*Rendered, error)
	PrintIntake(ctx context.Context, customerID uuid.UUID) (*Rendered, error)
}

type ServiceParams struct {
	Store     storeLoader
	Sales     saleLoader
	Customers customerLoader
	Printer   printerClient
	Archive   archiver
	Formatter Formatter
	Currency  string
	Logger    *logger.Logger
}

type service struct {
	store     storeLoader
	sales     saleLoader
	customers customerLoader
	printer   printerClient
	archive   archiver
	format    Formatter
	currency  string
	logg      *logger.Logger
}

// NewService wires the renderer. Printer and Archive are optional; printing
// without a printer fails with a dependency error.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store info loader required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("transaction loader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	format := params.Formatter
	if format.width == 0 {
		format = NewFormatter(DefaultWidth, nil)
	}
	return &service{
		store:     params.Store,
		sales:     params.Sales,
		customers: params.Customers,
		printer:   params.Printer,
		archive:   params.Archive,
		format:    format,
		currency:  params.Currency,
		logg:      params.Logger,
	}, nil
}

func (s *service) Sale(ctx context.Context, transactionID uuid.UUID) (*Rendered, error) {
	store, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Kind:          "sale",
		InvoiceNumber: sale.InvoiceNumber,
		Text:          s.format.Sale(*store, *sale, s.currency),
	}, nil
}

func (s *service) Intake(ctx context.Context, customerID uuid.UUID) (*Rendered, error) {
	store, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Kind:          "intake",
		InvoiceNumber: customer.InvoiceNumber,
		Text:          s.format.Intake(*store, *customer),
	}, nil
}

func (s *service) PrintSale(ctx context.Context, transactionID uuid.UUID) (*Rendered, error) {
	rendered, err := s.Sale(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return s.print(ctx, rendered)
}

func (s *service) PrintIntake(ctx context.Context, customerID uuid.UUID) (*Rendered, error) {
	rendered, err := s.Intake(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.print(ctx, rendered)
}

func (s *service) print(ctx context.Context, rendered *Rendered) (*Rendered, error) {
	if s.logg != nil {
		ctx = s.logg.WithInvoiceNumber(ctx, rendered.InvoiceNumber)
	}
	if s.printer == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, printer.ErrPrinterUnavailable, "no printer configured")
	}
	if err := s.printer.Print(ctx, rendered.Text); err != nil {
		if errors.Is(err, printer.ErrEmptyReceipt) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "receipt rendered empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "print receipt")
	}

	if s.archive != nil {
		name := fmt.Sprintf("%s/%s.txt", rendered.Kind, rendered.InvoiceNumber)
		uri, err := s.archive.PutText(ctx, name, rendered.Text)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "receipt archive failed")
			}
		} else {
			rendered.ArchiveURI = uri
		}
	}
	return rendered, nil
}
