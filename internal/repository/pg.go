package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/conn"
)

// PG persists orders, executions, holdings and accounts in PostgreSQL.
type PG struct {
	db *gorm.DB
}

// NewPG wraps an open connection and migrates the schema.
func NewPG(client *conn.Client) (*PG, error) {
	db := client.DB()
	if db == nil {
		return nil, errors.New("nil database connection")
	}
	if err := db.AutoMigrate(&accountRow{}, &orderRow{}, &executionRow{}, &holdingRow{}, &instrumentRow{}, &quoteRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS order_ids").Error; err != nil {
		return nil, errors.Wrap(err, "create order id sequence")
	}
	// rows written before the sequence existed must not be handed out again
	if err := db.Exec("SELECT setval('order_ids', (SELECT COALESCE(MAX(id), 0) + 1 FROM orders), false)").Error; err != nil {
		return nil, errors.Wrap(err, "align order id sequence")
	}
	return &PG{db: db}, nil
}

type accountRow struct {
	ID           int64 `gorm:"primaryKey"`
	Name         string
	CashAmount   decimal.Decimal `gorm:"type:numeric(18,2)"`
	CashCurrency string          `gorm:"size:3"`
}

func (accountRow) TableName() string { return "accounts" }

type orderRow struct {
	ID            int64 `gorm:"primaryKey"`
	ClientOrderID string
	AccountID     int64 `gorm:"index"`
	Symbol        string
	Side          uint8
	Quantity      decimal.Decimal `gorm:"type:numeric(18,0)"`
	Type          uint8
	LimitAmount   *decimal.Decimal `gorm:"type:numeric(18,2)"`
	LimitCurrency *string          `gorm:"size:3"`
	TimeInForce   uint8
	AllOrNone     bool
	CumQty        decimal.Decimal `gorm:"type:numeric(18,0)"`
	Status        uint8
	CreatedAt     time.Time
}

func (orderRow) TableName() string { return "orders" }

type executionRow struct {
	ID            string `gorm:"primaryKey"`
	OrderID       int64  `gorm:"index"`
	Quantity      decimal.Decimal `gorm:"type:numeric(18,0)"`
	PriceAmount   decimal.Decimal `gorm:"type:numeric(18,2)"`
	PriceCurrency string          `gorm:"size:3"`
	CreatedAt     time.Time
}

func (executionRow) TableName() string { return "executions" }

type holdingRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	AccountID    int64 `gorm:"index:idx_holdings_account_symbol"`
	Symbol       string `gorm:"index:idx_holdings_account_symbol"`
	Quantity     decimal.Decimal `gorm:"type:numeric(18,0)"`
	PaidAmount   decimal.Decimal `gorm:"type:numeric(18,2)"`
	PaidCurrency string          `gorm:"size:3"`
	AcquiredAt   time.Time
}

func (holdingRow) TableName() string { return "holdings" }

type instrumentRow struct {
	Symbol   string `gorm:"primaryKey;size:12"`
	Name     string
	Exchange string
}

func (instrumentRow) TableName() string { return "instruments" }

type quoteRow struct {
	Symbol        string          `gorm:"primaryKey;size:12"`
	PriceAmount   decimal.Decimal `gorm:"type:numeric(18,2)"`
	PriceCurrency string          `gorm:"size:3"`
	Effective     time.Time
}

func (quoteRow) TableName() string { return "quotes" }

func (p *PG) NextOrderID(ctx context.Context) (int64, error) {
	var id int64
	err := p.db.WithContext(ctx).
		Raw("SELECT nextval('order_ids')").
		Scan(&id).Error
	if err != nil {
		return 0, errors.Wrap(err, "next order id")
	}
	return id, nil
}

func (p *PG) SaveOrder(ctx context.Context, order model.Order) error {
	row := toOrderRow(order)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return errors.Wrap(err, "save order")
		}
		for _, exec := range order.Executions {
			execRow := toExecutionRow(order.ID, exec)
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&execRow).Error; err != nil {
				return errors.Wrap(err, "save execution").With("execId", exec.ID)
			}
		}
		return nil
	})
}

func (p *PG) Order(ctx context.Context, id int64) (model.Order, error) {
	var row orderRow
	if err := p.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, errors.Wrap(err, "load order")
	}
	var execRows []executionRow
	if err := p.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC").
		Find(&execRows).Error; err != nil {
		return model.Order{}, errors.Wrap(err, "load executions")
	}
	return fromOrderRow(row, execRows), nil
}

func (p *PG) OpenOrders(ctx context.Context) ([]model.Order, error) {
	terminal := []uint8{
		uint8(enum.OrderStatusFilled),
		uint8(enum.OrderStatusCanceled),
		uint8(enum.OrderStatusDoneForDay),
	}
	var rows []orderRow
	if err := p.db.WithContext(ctx).
		Where("status NOT IN ?", terminal).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load open orders")
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	// restored orders carry their executions so replay detection survives a restart
	execsByOrder := make(map[int64][]executionRow, len(rows))
	if len(ids) > 0 {
		var execRows []executionRow
		if err := p.db.WithContext(ctx).
			Where("order_id IN ?", ids).
			Order("created_at ASC").
			Find(&execRows).Error; err != nil {
			return nil, errors.Wrap(err, "load executions")
		}
		for _, execRow := range execRows {
			execsByOrder[execRow.OrderID] = append(execsByOrder[execRow.OrderID], execRow)
		}
	}

	out := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromOrderRow(row, execsByOrder[row.ID]))
	}
	return out, nil
}

func (p *PG) ListByAccount(ctx context.Context, accountID int64) ([]model.Holding, error) {
	var rows []holdingRow
	if err := p.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("acquired_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load holdings")
	}
	out := make([]model.Holding, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromHoldingRow(row))
	}
	return out, nil
}

func (p *PG) Append(ctx context.Context, holding model.Holding) (model.Holding, error) {
	row := toHoldingRow(holding)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Holding{}, errors.Wrap(err, "append holding")
	}
	return fromHoldingRow(row), nil
}

func (p *PG) ConsumeFIFO(ctx context.Context, accountID int64, symbol string, qty model.Quantity) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []holdingRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ? AND symbol = ?", accountID, symbol).
			Order("acquired_at ASC, id ASC").
			Find(&rows).Error; err != nil {
			return errors.Wrap(err, "lock holdings")
		}

		available := decimal.Zero
		for _, row := range rows {
			available = available.Add(row.Quantity)
		}
		if available.LessThan(qty.Decimal()) {
			return ErrOversoldHolding
		}

		remaining := qty.Decimal()
		for _, row := range rows {
			if remaining.IsZero() {
				break
			}
			if row.Quantity.LessThanOrEqual(remaining) {
				remaining = remaining.Sub(row.Quantity)
				if err := tx.Delete(&holdingRow{}, row.ID).Error; err != nil {
					return errors.Wrap(err, "delete consumed lot")
				}
				continue
			}
			if err := tx.Model(&holdingRow{}).
				Where("id = ?", row.ID).
				Update("quantity", row.Quantity.Sub(remaining)).Error; err != nil {
				return errors.Wrap(err, "shrink lot")
			}
			remaining = decimal.Zero
		}
		return nil
	})
}

func (p *PG) Account(ctx context.Context, accountID int64) (model.Account, error) {
	var row accountRow
	if err := p.db.WithContext(ctx).First(&row, accountID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, errors.Wrap(err, "load account")
	}
	return model.Account{
		ID:   row.ID,
		Name: row.Name,
		Cash: model.NewMoney(row.CashAmount, row.CashCurrency),
	}, nil
}

func (p *PG) AdjustCash(ctx context.Context, accountID int64, delta model.Money) (model.Account, error) {
	var account model.Account
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, accountID).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return errors.Wrap(err, "lock account")
		}
		if row.CashCurrency != delta.Currency {
			return model.ErrCurrencyMismatch
		}
		row.CashAmount = row.CashAmount.Add(delta.Amount)
		if err := tx.Model(&accountRow{}).
			Where("id = ?", row.ID).
			Update("cash_amount", row.CashAmount).Error; err != nil {
			return errors.Wrap(err, "update cash")
		}
		account = model.Account{
			ID:   row.ID,
			Name: row.Name,
			Cash: model.NewMoney(row.CashAmount, row.CashCurrency),
		}
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

func (p *PG) UpsertAccount(ctx context.Context, account model.Account) error {
	row := accountRow{
		ID:           account.ID,
		Name:         account.Name,
		CashAmount:   account.Cash.Amount,
		CashCurrency: account.Cash.Currency,
	}
	if err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error; err != nil {
		return errors.Wrap(err, "upsert account").With("accountId", account.ID)
	}
	return nil
}

func (p *PG) UpsertInstrument(ctx context.Context, instrument model.Instrument) error {
	row := instrumentRow{
		Symbol:   instrument.Symbol,
		Name:     instrument.Name,
		Exchange: instrument.Exchange,
	}
	if err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error; err != nil {
		return errors.Wrap(err, "upsert instrument").With("symbol", instrument.Symbol)
	}
	return nil
}

func (p *PG) UpsertQuote(ctx context.Context, price model.MarketPrice) error {
	row := quoteRow{
		Symbol:        price.Symbol,
		PriceAmount:   price.Price.Amount,
		PriceCurrency: price.Price.Currency,
		Effective:     price.Effective,
	}
	if err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error; err != nil {
		return errors.Wrap(err, "upsert quote").With("symbol", price.Symbol)
	}
	return nil
}

// FetchInstruments serves the reference-data cache.
func (p *PG) FetchInstruments(ctx context.Context) ([]model.Instrument, error) {
	var rows []instrumentRow
	if err := p.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load instruments")
	}
	out := make([]model.Instrument, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Instrument{
			Symbol:   row.Symbol,
			Name:     row.Name,
			Exchange: row.Exchange,
		})
	}
	return out, nil
}

// FetchPrices serves the market-data cache's initial population.
func (p *PG) FetchPrices(ctx context.Context) ([]model.MarketPrice, error) {
	var rows []quoteRow
	if err := p.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load quotes")
	}
	out := make([]model.MarketPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.MarketPrice{
			Symbol:    row.Symbol,
			Price:     model.NewMoney(row.PriceAmount, row.PriceCurrency),
			Effective: row.Effective,
		})
	}
	return out, nil
}

func toOrderRow(order model.Order) orderRow {
	row := orderRow{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		AccountID:     order.AccountID,
		Symbol:        order.Symbol,
		Side:          uint8(order.Side),
		Quantity:      order.Quantity.Decimal(),
		Type:          uint8(order.Type),
		TimeInForce:   uint8(order.TimeInForce),
		AllOrNone:     order.AllOrNone,
		CumQty:        order.CumQty.Decimal(),
		Status:        uint8(order.Status),
		CreatedAt:     order.CreatedAt,
	}
	if order.LimitPrice != nil {
		amount := order.LimitPrice.Amount
		currency := order.LimitPrice.Currency
		row.LimitAmount = &amount
		row.LimitCurrency = &currency
	}
	return row
}

func fromOrderRow(row orderRow, execRows []executionRow) model.Order {
	order := model.Order{
		ID:            row.ID,
		ClientOrderID: row.ClientOrderID,
		AccountID:     row.AccountID,
		Symbol:        row.Symbol,
		Side:          enum.OrderSide(row.Side),
		Quantity:      model.QuantityFromDecimal(row.Quantity),
		Type:          enum.OrderType(row.Type),
		TimeInForce:   enum.OrderTimeInForce(row.TimeInForce),
		AllOrNone:     row.AllOrNone,
		CumQty:        model.QuantityFromDecimal(row.CumQty),
		Status:        enum.OrderStatus(row.Status),
		CreatedAt:     row.CreatedAt,
	}
	if row.LimitAmount != nil && row.LimitCurrency != nil {
		limit := model.NewMoney(*row.LimitAmount, *row.LimitCurrency)
		order.LimitPrice = &limit
	}
	for _, execRow := range execRows {
		order.Executions = append(order.Executions, model.Execution{
			ID:        execRow.ID,
			Quantity:  model.QuantityFromDecimal(execRow.Quantity),
			Price:     model.NewMoney(execRow.PriceAmount, execRow.PriceCurrency),
			CreatedAt: execRow.CreatedAt,
		})
	}
	return order
}

func toExecutionRow(orderID int64, exec model.Execution) executionRow {
	return executionRow{
		ID:            exec.ID,
		OrderID:       orderID,
		Quantity:      exec.Quantity.Decimal(),
		PriceAmount:   exec.Price.Amount,
		PriceCurrency: exec.Price.Currency,
		CreatedAt:     exec.CreatedAt,
	}
}

func toHoldingRow(holding model.Holding) holdingRow {
	return holdingRow{
		ID:           holding.ID,
		AccountID:    holding.AccountID,
		Symbol:       holding.Symbol,
		Quantity:     holding.Quantity.Decimal(),
		PaidAmount:   holding.PricePaid.Amount,
		PaidCurrency: holding.PricePaid.Currency,
		AcquiredAt:   holding.AcquiredAt,
	}
}

func fromHoldingRow(row holdingRow) model.Holding {
	return model.Holding{
		ID:         row.ID,
		AccountID:  row.AccountID,
		Symbol:     row.Symbol,
		Quantity:   model.QuantityFromDecimal(row.Quantity),
		PricePaid:  model.NewMoney(row.PaidAmount, row.PaidCurrency),
		AcquiredAt: row.AcquiredAt,
	}
}
