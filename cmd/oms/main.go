package main

import (
	"context"
	"flag"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/brokerage"
	"main/internal/bus"
	"main/internal/feed"
	"main/internal/marketdata"
	"main/internal/obs"
	"main/internal/og"
	"main/internal/ops"
	"main/internal/recon"
	"main/internal/refdata"
	"main/internal/repository"
	"main/internal/sched"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("oms: %v", err)
		os.Exit(1)
	}
}

type stores struct {
	orders   repository.OrderStore
	holdings repository.HoldingStore
	accounts repository.AccountStore
	seeds    repository.SeedStore
	refs     refdata.Source
	quotes   marketdata.Source
}

func run() error {
	configPath := flag.String("config", "config.json", "path to JSON config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if loaded.ProfileAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "oms",
			ServerAddress:   loaded.ProfileAddress,
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	st, cleanup, err := buildStores(ctx, loaded)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := seed(ctx, st.seeds, loaded); err != nil {
		return err
	}

	instruments := refdata.NewCache(st.refs)
	prices := marketdata.NewCache(st.quotes)
	metrics := obs.NewMetrics()
	book := og.NewBook()
	if err := restoreBook(ctx, book, st.orders); err != nil {
		return err
	}

	inbound := bus.NewQueue(loaded.InboundCapacity)
	outbound := bus.NewQueue(loaded.OutboundCapacity)
	priceTopic := bus.NewTopic[bus.Message]()

	reconcile := recon.NewUsecase(recon.Config{
		BrokerID: loaded.BrokerID,
		Workers:  loaded.Workers,
	}, book, st.orders, st.holdings, st.accounts, prices, inbound, priceTopic, metrics)
	reconcile.Run(ctx)
	go logUpdates(ctx, reconcile)

	broker := brokerage.NewUsecase(brokerage.Config{
		BrokerID:    loaded.BrokerID,
		MinQuantity: loaded.MinQuantity,
	}, book, st.orders, st.holdings, st.accounts, instruments, prices, brokerage.NewQueueTransport(outbound))
	if known, err := broker.GetInstruments(ctx); err != nil {
		logs.Warnf("warm instrument cache failed: %v", err)
	} else {
		logs.Infof("loaded %d instruments", len(known))
	}

	if err := connectExchange(ctx, loaded, inbound, outbound, priceTopic, metrics); err != nil {
		return err
	}

	scheduler := sched.New()
	if err := scheduler.AddJob(loaded.DoneForDayCron, sched.NewDoneForDayJob(book, st.orders, nil)); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	logs.Infof("oms started, broker %s", loaded.BrokerID)
	<-sys.Shutdown()
	logs.Info("oms shutting down")
	return nil
}

func buildStores(ctx context.Context, loaded ops.Loaded) (stores, func(), error) {
	if loaded.Postgres == nil {
		mem := repository.NewMemory()
		return stores{
			orders:   mem,
			holdings: mem,
			accounts: mem,
			seeds:    mem,
			refs:     mem,
			quotes:   mem,
		}, func() {}, nil
	}

	client, err := conn.New(*loaded.Postgres)
	if err != nil {
		return stores{}, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return stores{}, nil, err
	}
	pg, err := repository.NewPG(client)
	if err != nil {
		_ = client.Close()
		return stores{}, nil, err
	}
	return stores{
		orders:   pg,
		holdings: pg,
		accounts: pg,
		seeds:    pg,
		refs:     pg,
		quotes:   pg,
	}, func() { _ = client.Close() }, nil
}

func seed(ctx context.Context, store repository.SeedStore, loaded ops.Loaded) error {
	for _, account := range loaded.Accounts {
		if err := store.UpsertAccount(ctx, account); err != nil {
			return err
		}
	}
	for _, instrument := range loaded.Instruments {
		if err := store.UpsertInstrument(ctx, instrument); err != nil {
			return err
		}
	}
	for _, price := range loaded.Prices {
		if err := store.UpsertQuote(ctx, price); err != nil {
			return err
		}
	}
	return nil
}

// restoreBook reloads non-terminal orders so redeliveries reconcile
// against the state persisted before the restart.
func restoreBook(ctx context.Context, book *og.Book, orders repository.OrderStore) error {
	open, err := orders.OpenOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range open {
		if err := book.Restore(order); err != nil {
			return err
		}
	}
	if len(open) > 0 {
		logs.Infof("restored %d open orders", len(open))
	}
	return nil
}

func connectExchange(ctx context.Context, loaded ops.Loaded, inbound, outbound *bus.Queue, priceTopic *bus.Topic[bus.Message], metrics *obs.Metrics) error {
	if loaded.FeedURL == "" {
		logs.Warn("no exchange feed configured, outbound messages are dropped")
		go outbound.Run(ctx, func(m bus.Message) {
			logs.Debugf("drop outbound %s, no exchange link", m.Type)
		})
		return nil
	}

	exchange := feed.NewExchangeFeed(ctx, loaded.FeedURL, inbound, priceTopic, metrics)
	if err := exchange.Start(ctx); err != nil {
		return err
	}
	exchange.Observe(ctx)
	if len(loaded.FeedSymbols) > 0 {
		if err := exchange.SubscribePrices(ctx, loaded.FeedSymbols); err != nil {
			return err
		}
	}
	go outbound.Run(ctx, func(m bus.Message) {
		if err := exchange.Send(ctx, m); err != nil {
			logs.Errorf("send outbound %s failed: %v", m.Type, err)
		}
	})
	return nil
}

func logUpdates(ctx context.Context, reconcile *recon.Usecase) {
	ch, cancel := reconcile.Updates().Subscribe(64)
	defer cancel()
	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			logs.Infof("order %d is now %s after %s",
				update.Order.ID, update.Order.Status, update.Event)
		}
	}
}
