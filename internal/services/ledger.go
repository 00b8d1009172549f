// Package services orchestrates ledger operations on top of the storage
// layer: series expansion, scoped edits and deletes, transfers and credit
// card statements.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caderneta/internal/core"
	"caderneta/internal/storage"
)

// EditScope selects how far an edit propagates through a series.
type EditScope string

// DeleteScope selects how far a delete propagates through a series.
type DeleteScope string

const (
	EditUnico     EditScope = "unico"
	EditApenasMes EditScope = "apenas_mes"
	EditFuturos   EditScope = "futuros"
	EditTodos     EditScope = "todos"

	DeleteUnico   DeleteScope = "unico"
	DeleteFuturos DeleteScope = "futuros_recorrencia"
	DeleteTodos   DeleteScope = "todos_recorrencia"
)

var (
	ErrUnknownScope    = errors.New("unknown scope")
	ErrNotInSeries     = errors.New("entry does not belong to a series")
	ErrTransferLeg     = errors.New("transfer legs cannot be edited; delete and recreate the transfer")
	ErrSameAccount     = errors.New("transfer requires two distinct accounts")
	ErrCorruptTransfer = errors.New("transfer group does not have exactly one expense and one income leg")
)

// Ledger coordinates entry, series and transfer operations. Every mutation
// that touches more than one row runs inside a single transaction.
type Ledger struct {
	repo *storage.Repository
}

func NewLedger(repo *storage.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// CreateSingle validates and persists a standalone entry.
func (l *Ledger) CreateSingle(ctx context.Context, e core.Entry) (core.Entry, error) {
	if e.Status == "" {
		e.Status = core.Pendente
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	created, err := l.repo.Queries().CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	slog.InfoContext(ctx, "entry created", "id", created.ID, "kind", created.Kind)
	return created, nil
}

// CreateSeries expands a recurrence template and persists the series record
// together with every generated occurrence.
func (l *Ledger) CreateSeries(ctx context.Context, tmpl core.SeriesTemplate) (core.Series, error) {
	tmpl.Frequency = core.NormalizeFrequency(string(tmpl.Frequency))
	entries, err := core.ExpandSeries(tmpl)
	if err != nil {
		return core.Series{}, err
	}

	series := core.Series{
		BaseDescription: tmpl.Description,
		Kind:            tmpl.SeriesKind,
		TotalCount:      len(entries),
		Frequency:       tmpl.Frequency,
	}
	err = l.repo.WithTx(ctx, func(q *storage.Queries) error {
		series, err = q.CreateSeries(ctx, series)
		if err != nil {
			return err
		}
		for i := range entries {
			entries[i].SeriesID = series.ID
			if _, err := q.CreateEntry(ctx, entries[i]); err != nil {
				return fmt.Errorf("occurrence %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Series{}, err
	}
	slog.InfoContext(ctx, "series created",
		"id", series.ID, "kind", series.Kind, "occurrences", len(entries))
	return series, nil
}

// CreateTransfer moves money between two accounts by writing a pair of
// already-paid legs bound to a fresh transfer group. When desc is empty each
// leg gets a default description naming the opposite account.
func (l *Ledger) CreateTransfer(ctx context.Context, fromID, toID int64, amount core.Money, when time.Time, desc string) (string, error) {
	if fromID == toID {
		return "", ErrSameAccount
	}
	if err := amount.Validate(); err != nil {
		return "", err
	}
	if when.IsZero() {
		return "", core.ErrInvalidDueDate
	}

	q := l.repo.Queries()
	from, err := q.GetAccount(ctx, fromID)
	if err != nil {
		return "", fmt.Errorf("source account: %w", err)
	}
	to, err := q.GetAccount(ctx, toID)
	if err != nil {
		return "", fmt.Errorf("destination account: %w", err)
	}

	outDesc, inDesc := desc, desc
	if desc == "" {
		outDesc = "Transferência para " + to.Name
		inDesc = "Transferência de " + from.Name
	}

	groupID := uuid.NewString()
	legs := []core.Entry{
		{Description: outDesc, Kind: core.Despesa, Funding: core.AccountFunding(from.ID)},
		{Description: inDesc, Kind: core.Receita, Funding: core.AccountFunding(to.ID)},
	}
	err = l.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.CreateTransferGroup(ctx, groupID); err != nil {
			return err
		}
		for _, leg := range legs {
			leg.Amount = amount
			leg.DueDate = when
			leg.PaidDate = when
			leg.Status = core.Pago
			leg.TransferGroupID = groupID
			if err := leg.Validate(); err != nil {
				return err
			}
			if _, err := q.CreateEntry(ctx, leg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "transfer created",
		"group", groupID, "from", from.Name, "to", to.Name, "cents", amount.Cents)
	return groupID, nil
}

// TogglePaid flips an entry between Pendente and Pago, stamping or clearing
// the payment date.
func (l *Ledger) TogglePaid(ctx context.Context, id int64, when time.Time) (core.Entry, error) {
	q := l.repo.Queries()
	e, err := q.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if e.Paid() {
		e.Status = core.Pendente
		e.PaidDate = time.Time{}
	} else {
		e.Status = core.Pago
		e.PaidDate = when
	}
	if err := q.UpdateEntryStatus(ctx, e.ID, e.Status, e.PaidDate); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// EditRequest carries the new field values for a scoped edit. DueDate is only
// honored for single-entry scopes; series occurrences keep their generated
// schedule.
type EditRequest struct {
	EntryID       int64
	Scope         EditScope
	Description   string
	Amount        core.Money
	Kind          core.EntryKind
	DueDate       time.Time
	Funding       core.Funding
	SubcategoryID int64
}

// EditScoped applies an edit to one entry or propagates it through the
// entry's series according to the scope. Installment descriptions are
// restamped from the date-sorted position so ordinals stay consistent after
// partial deletes.
func (l *Ledger) EditScoped(ctx context.Context, req EditRequest) error {
	return l.repo.WithTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetEntry(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if e.TransferGroupID != "" {
			return ErrTransferLeg
		}

		switch req.Scope {
		case EditUnico, EditApenasMes:
			e.Description = req.Description
			e.Amount = req.Amount
			e.Kind = req.Kind
			e.DueDate = req.DueDate
			e.Funding = req.Funding
			e.SubcategoryID = req.SubcategoryID
			if err := e.Validate(); err != nil {
				return err
			}
			return q.UpdateEntry(ctx, e)

		case EditFuturos, EditTodos:
			if e.SeriesID == 0 {
				return ErrNotInSeries
			}
			return l.editSeries(ctx, q, e, req)

		default:
			return fmt.Errorf("%w: %q", ErrUnknownScope, req.Scope)
		}
	})
}

func (l *Ledger) editSeries(ctx context.Context, q *storage.Queries, target core.Entry, req EditRequest) error {
	series, err := q.GetSeries(ctx, target.SeriesID)
	if err != nil {
		return err
	}
	if err := q.UpdateSeriesDescription(ctx, series.ID, req.Description); err != nil {
		return err
	}

	all, err := q.ListSeriesEntries(ctx, series.ID)
	if err != nil {
		return err
	}
	for i, e := range all {
		if req.Scope == EditFuturos && e.DueDate.Before(target.DueDate) {
			continue
		}
		if series.Kind == core.Parcelada {
			// The denominator is the series' stored total, so labels keep
			// their original count even after single installments were
			// deleted.
			e.Description = core.InstallmentLabel(req.Description, i+1, series.TotalCount)
		} else {
			e.Description = req.Description
		}
		e.Amount = req.Amount
		e.Kind = req.Kind
		e.Funding = req.Funding
		e.SubcategoryID = req.SubcategoryID
		if err := e.Validate(); err != nil {
			return err
		}
		if err := q.UpdateEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// DeleteScoped removes one entry or a slice of its series. Deleting the last
// remaining occurrence also removes the now-empty series record. Transfer
// legs are routed to the whole-transfer delete so a group never loses a
// single leg.
func (l *Ledger) DeleteScoped(ctx context.Context, entryID int64, scope DeleteScope) error {
	return l.repo.WithTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if e.TransferGroupID != "" {
			return deleteTransferGroup(ctx, q, e.TransferGroupID)
		}

		switch scope {
		case DeleteUnico:
			if err := q.DeleteEntry(ctx, e.ID); err != nil {
				return err
			}
			return dropSeriesIfEmpty(ctx, q, e.SeriesID)

		case DeleteFuturos:
			if e.SeriesID == 0 {
				return ErrNotInSeries
			}
			from := e.DueDate.Format("2006-01-02")
			if _, err := q.DeleteSeriesEntriesFrom(ctx, e.SeriesID, from); err != nil {
				return err
			}
			return dropSeriesIfEmpty(ctx, q, e.SeriesID)

		case DeleteTodos:
			if e.SeriesID == 0 {
				return ErrNotInSeries
			}
			return q.DeleteSeries(ctx, e.SeriesID)

		default:
			return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
		}
	})
}

// DeleteTransfer removes both legs and the group record after checking the
// group still holds exactly one expense and one income leg.
func (l *Ledger) DeleteTransfer(ctx context.Context, groupID string) error {
	return l.repo.WithTx(ctx, func(q *storage.Queries) error {
		return deleteTransferGroup(ctx, q, groupID)
	})
}

func deleteTransferGroup(ctx context.Context, q *storage.Queries, groupID string) error {
	legs, err := q.ListTransferEntries(ctx, groupID)
	if err != nil {
		return err
	}
	if len(legs) != 2 || legs[0].Kind != core.Despesa || legs[1].Kind != core.Receita {
		return fmt.Errorf("%w: group %s has %d legs", ErrCorruptTransfer, groupID, len(legs))
	}
	if _, err := q.DeleteTransferEntries(ctx, groupID); err != nil {
		return err
	}
	return q.DeleteTransferGroup(ctx, groupID)
}

func dropSeriesIfEmpty(ctx context.Context, q *storage.Queries, seriesID int64) error {
	if seriesID == 0 {
		return nil
	}
	n, err := q.CountSeriesEntries(ctx, seriesID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return q.DeleteSeries(ctx, seriesID)
}
