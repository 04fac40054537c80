package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"gopkg.in/yaml.v3"

	"clob/internal/book"
	"clob/internal/fixed"
	"clob/internal/host"
	"clob/internal/market"
	"clob/internal/schema"
)

// scenario is a scripted list of commands. Identities are named once and
// referred to by name; orders opened with a ref can be cancelled or matched
// by that ref later on.
//
//	users:
//	  alice: "address:0x01..."
//	steps:
//	  - {as: alice, op: deposit, asset: quote, amount: "1000"}
//	  - {as: alice, op: open, size: "0.5", price: "45000", ref: bid}
type scenario struct {
	Users map[string]string `yaml:"users"`
	Steps []step            `yaml:"steps"`

	ids    map[string]schema.Identity
	orders map[string]book.OrderID
}

type step struct {
	As     string        `yaml:"as"`
	Op     string        `yaml:"op"`
	Asset  string        `yaml:"asset"`
	Amount string        `yaml:"amount"`
	Size   string        `yaml:"size"`
	Price  string        `yaml:"price"`
	Ref    string        `yaml:"ref"`
	Order  string        `yaml:"order"`
	Taken  string        `yaml:"taken"`
	Given  string        `yaml:"given"`
	To     string        `yaml:"to"`
	Start  string        `yaml:"start"`
	Length time.Duration `yaml:"duration"`
	// Expect names an error the step must fail with, e.g. "Paused".
	Expect string `yaml:"expect"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %q", path)
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	sc.ids = make(map[string]schema.Identity, len(sc.Users))
	for name, raw := range sc.Users {
		id, err := schema.ParseIdentity(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "user %s", name)
		}
		sc.ids[name] = id
	}
	sc.orders = make(map[string]book.OrderID)
	return &sc, nil
}

func (sc *scenario) run(ctx context.Context, u *host.Usecase) error {
	for i, st := range sc.Steps {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown requested, scenario stopped")
			return nil
		default:
		}

		err := sc.apply(ctx, u, st)
		switch {
		case st.Expect != "" && err == nil:
			return errors.Errorf("step %d (%s) should fail with %s", i, st.Op, st.Expect)
		case st.Expect != "" && !strings.Contains(err.Error(), st.Expect):
			return errors.Wrapf(err, "step %d (%s) failed with the wrong error, want %s", i, st.Op, st.Expect)
		case st.Expect != "":
			logs.Infof("step %d %s by %s rejected as expected: %s", i, st.Op, st.As, st.Expect)
		case err != nil:
			return errors.Wrapf(err, "step %d (%s)", i, st.Op)
		default:
			logs.Infof("step %d %s by %s done, seq: %d", i, st.Op, st.As, u.LastSeq())
		}
	}
	return nil
}

func (sc *scenario) apply(ctx context.Context, u *host.Usecase, st step) error {
	caller, err := sc.identity(st.As)
	if err != nil {
		return err
	}
	c := u.As(caller)
	base, quote, scale := u.Base(), u.Quote(), u.Scale()

	switch st.Op {
	case "deposit", "withdraw":
		asset, decimals, err := sc.asset(st.Asset, base, quote)
		if err != nil {
			return err
		}
		amount, err := fixed.ParseUnits(st.Amount, decimals)
		if err != nil {
			return err
		}
		if st.Op == "deposit" {
			_, err = c.Deposit(ctx, amount, asset)
		} else {
			_, err = c.Withdraw(ctx, amount, asset)
		}
		return err
	case "open":
		size, err := fixed.ParseSignedUnits(st.Size, scale.BaseDecimals)
		if err != nil {
			return err
		}
		price, err := fixed.ParseUnits(st.Price, scale.PriceDecimals)
		if err != nil {
			return err
		}
		id, _, err := c.OpenOrder(ctx, base.ID, size, price)
		if err != nil {
			return err
		}
		if st.Ref != "" {
			sc.orders[st.Ref] = id
		}
		logs.Infof("order %s opened as %s", st.Ref, id)
		return nil
	case "cancel":
		id, err := sc.order(st.Order)
		if err != nil {
			return err
		}
		_, err = c.CancelOrder(ctx, id)
		return err
	case "match":
		taken, err := sc.order(st.Taken)
		if err != nil {
			return err
		}
		given, err := sc.order(st.Given)
		if err != nil {
			return err
		}
		events, err := c.MatchOrders(ctx, taken, given)
		for _, e := range events {
			if t, ok := e.(market.TradeEvent); ok {
				logs.Infof("trade %s @ %s, buyer fee: %s, seller fee: %s",
					fixed.FormatUnits(t.Size, scale.BaseDecimals), fixed.FormatUnits(t.Price, scale.PriceDecimals),
					fixed.FormatUnits(t.BuyerFee, scale.QuoteDecimals), fixed.FormatUnits(t.SellerFee, scale.QuoteDecimals))
			}
		}
		return err
	case "pause":
		_, err = c.Pause(ctx)
		return err
	case "unpause":
		_, err = c.Unpause(ctx)
		return err
	case "set_epoch":
		start := market.TAI64(time.Now())
		if st.Start != "" {
			t, err := time.Parse(time.RFC3339, st.Start)
			if err != nil {
				return err
			}
			start = market.TAI64(t)
		}
		_, err = c.SetEpoch(ctx, start, uint64(st.Length/time.Second))
		return err
	case "set_min_order_size":
		v, err := fixed.ParseUnits(st.Size, scale.BaseDecimals)
		if err != nil {
			return err
		}
		_, err = c.SetMinOrderSize(ctx, v)
		return err
	case "set_min_order_price":
		v, err := fixed.ParseUnits(st.Price, scale.PriceDecimals)
		if err != nil {
			return err
		}
		_, err = c.SetMinOrderPrice(ctx, v)
		return err
	case "set_matcher_fee":
		v, err := fixed.ParseUnits(st.Amount, scale.QuoteDecimals)
		if err != nil {
			return err
		}
		_, err = c.SetMatcherFee(ctx, v)
		return err
	case "initialize_ownership", "transfer_ownership":
		to, err := sc.identity(st.To)
		if err != nil {
			return err
		}
		if st.Op == "initialize_ownership" {
			_, err = c.InitializeOwnership(ctx, to)
		} else {
			_, err = c.TransferOwnership(ctx, to)
		}
		return err
	case "withdraw_protocol_fee":
		to, err := sc.identity(st.To)
		if err != nil {
			return err
		}
		_, err = c.WithdrawProtocolFee(ctx, to)
		return err
	case "balance":
		acc := c.Account()
		logs.Infof("%s base: %s liquid / %s locked, quote: %s liquid / %s locked", st.As,
			fixed.FormatUnits(acc.BaseLiquid, scale.BaseDecimals), fixed.FormatUnits(acc.BaseLocked, scale.BaseDecimals),
			fixed.FormatUnits(acc.QuoteLiquid, scale.QuoteDecimals), fixed.FormatUnits(acc.QuoteLocked, scale.QuoteDecimals))
		return nil
	default:
		return errors.Errorf("unknown op %q", st.Op)
	}
}

func (sc *scenario) identity(name string) (schema.Identity, error) {
	if id, ok := sc.ids[name]; ok {
		return id, nil
	}
	return schema.ParseIdentity(name)
}

func (sc *scenario) order(ref string) (book.OrderID, error) {
	if id, ok := sc.orders[ref]; ok {
		return id, nil
	}
	return book.ParseOrderID(ref)
}

func (sc *scenario) asset(name string, base, quote schema.Asset) (schema.AssetID, uint32, error) {
	switch name {
	case "base":
		return base.ID, base.Decimals, nil
	case "quote", "":
		return quote.ID, quote.Decimals, nil
	}
	id, err := schema.ParseAssetID(name)
	if err != nil {
		return schema.AssetID{}, 0, err
	}
	if id == base.ID {
		return id, base.Decimals, nil
	}
	return id, quote.Decimals, nil
}
