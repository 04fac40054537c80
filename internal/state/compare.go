package state

import (
	"reflect"

	"github.com/yanun0323/errors"

	"clob/internal/book"
	"clob/internal/ledger"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// CompareSnapshots checks that two market states match and names the
// first difference.
func CompareSnapshots(expected, actual Snapshot) error {
	e, a := expected.Market, actual.Market
	if e.Base != a.Base || e.Quote != a.Quote || e.PriceDecimals != a.PriceDecimals {
		return errors.Wrap(exception.ErrSnapshotMismatch, "asset pair differs")
	}
	if e.Config != a.Config {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "config differs: expected=%+v actual=%+v", e.Config, a.Config)
	}
	if !reflect.DeepEqual(e.Fees, a.Fees) {
		return errors.Wrap(exception.ErrSnapshotMismatch, "fee schedule differs")
	}
	if err := compareAccounts(e.Ledger, a.Ledger); err != nil {
		return err
	}
	if err := comparePools(e.Ledger.Pool, a.Ledger.Pool); err != nil {
		return err
	}
	return compareOrders(e.Book, a.Book)
}

func compareAccounts(expected, actual ledger.Snapshot) error {
	want := make(map[schema.Identity]ledger.AccountEntry, len(expected.Accounts))
	for _, entry := range expected.Accounts {
		want[entry.Owner] = entry
	}
	if len(expected.Accounts) != len(actual.Accounts) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "account count: expected=%d actual=%d",
			len(expected.Accounts), len(actual.Accounts))
	}
	for _, entry := range actual.Accounts {
		w, ok := want[entry.Owner]
		if !ok {
			return errors.Wrap(exception.ErrSnapshotMismatch, "unexpected account").With("owner", entry.Owner.String())
		}
		if w != entry {
			return errors.Wrapf(exception.ErrSnapshotMismatch, "account %s differs: expected=%+v actual=%+v",
				entry.Owner, w, entry)
		}
	}
	return nil
}

func comparePools(expected, actual []ledger.PoolEntry) error {
	if len(expected) != len(actual) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "fee pool count: expected=%d actual=%d", len(expected), len(actual))
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return errors.Wrap(exception.ErrSnapshotMismatch, "fee pool differs").
				With("asset", expected[i].Asset.String())
		}
	}
	return nil
}

func compareOrders(expected, actual book.Snapshot) error {
	if expected.Nonce != actual.Nonce {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "order nonce: expected=%d actual=%d", expected.Nonce, actual.Nonce)
	}
	if len(expected.Orders) != len(actual.Orders) {
		return errors.Wrapf(exception.ErrSnapshotMismatch, "order count: expected=%d actual=%d",
			len(expected.Orders), len(actual.Orders))
	}
	for i := range expected.Orders {
		if expected.Orders[i] != actual.Orders[i] {
			return errors.Wrap(exception.ErrSnapshotMismatch, "order differs").
				With("order", expected.Orders[i].ID.String())
		}
	}
	return nil
}
