// Package dbtest provides an in-memory stand-in for the Postgres store used by
// handler and service tests.
package dbtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/checkout-api/internal/db"
	dbgen "github.com/noah-isme/checkout-api/internal/db/gen"
)

type product struct {
	name  string
	price string
}

type cartItem struct {
	id        pgtype.UUID
	cartID    pgtype.UUID
	productID pgtype.UUID
	quantity  int32
}

type orderItem struct {
	orderID pgtype.UUID
	row     dbgen.ListOrderItemsRow
}

type state struct {
	profiles   map[pgtype.UUID]dbgen.Profile
	products   map[pgtype.UUID]product
	carts      map[pgtype.UUID]dbgen.Cart
	cartItems  []cartItem
	orders     []dbgen.ListOrdersByUserRow
	orderItems []orderItem
	events     map[string]string
}

func (s state) clone() state {
	c := state{
		profiles:   make(map[pgtype.UUID]dbgen.Profile, len(s.profiles)),
		products:   make(map[pgtype.UUID]product, len(s.products)),
		carts:      make(map[pgtype.UUID]dbgen.Cart, len(s.carts)),
		cartItems:  append([]cartItem(nil), s.cartItems...),
		orders:     append([]dbgen.ListOrdersByUserRow(nil), s.orders...),
		orderItems: append([]orderItem(nil), s.orderItems...),
		events:     make(map[string]string, len(s.events)),
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

// Memory implements dbgen.Querier and transactional execution over in-process
// maps. Transactions are serialized and roll back by restoring a snapshot.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state
	now  time.Time

	// Fail makes the named query return the error.
	Fail map[string]error
	// Calls counts invocations per query name.
	Calls map[string]int
}

var _ dbgen.Querier = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		st: state{
			profiles: map[pgtype.UUID]dbgen.Profile{},
			products: map[pgtype.UUID]product{},
			carts:    map[pgtype.UUID]dbgen.Cart{},
			events:   map[string]string{},
		},
		now:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Fail:  map[string]error{},
		Calls: map[string]int{},
	}
}

// InTx runs fn against the store, restoring the previous state when fn fails.
func (m *Memory) InTx(_ context.Context, fn func(q dbgen.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) enter(name string) error {
	m.Calls[name]++
	if err := m.Fail[name]; err != nil {
		return err
	}
	return nil
}

func (m *Memory) ts() pgtype.Timestamptz {
	m.now = m.now.Add(time.Second)
	return pgtype.Timestamptz{Time: m.now, Valid: true}
}

// AddProduct seeds a product and returns its id.
func (m *Memory) AddProduct(name, price string) pgtype.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := db.NewUUID()
	m.st.products[id] = product{name: name, price: price}
	return id
}

// AddCart seeds an empty cart for userID and returns the cart id.
func (m *Memory) AddCart(userID pgtype.UUID) pgtype.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := db.NewUUID()
	m.st.carts[userID] = dbgen.Cart{ID: id, UserID: userID, CreatedAt: m.ts(), UpdatedAt: m.ts()}
	return id
}

// AddCartItem seeds a cart line.
func (m *Memory) AddCartItem(cartID, productID pgtype.UUID, qty int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.cartItems = append(m.st.cartItems, cartItem{id: db.NewUUID(), cartID: cartID, productID: productID, quantity: qty})
}

// CartItemCount returns the number of lines in cartID.
func (m *Memory) CartItemCount(cartID pgtype.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.st.cartItems {
		if it.cartID == cartID {
			n++
		}
	}
	return n
}

// Orders returns a copy of every stored order.
func (m *Memory) Orders() []dbgen.ListOrdersByUserRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dbgen.ListOrdersByUserRow(nil), m.st.orders...)
}

// OrderItemCount returns the number of items stored for orderID.
func (m *Memory) OrderItemCount(orderID pgtype.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.st.orderItems {
		if it.orderID == orderID {
			n++
		}
	}
	return n
}

// ProfileCount returns the number of stored profiles.
func (m *Memory) ProfileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.profiles)
}

// EventCount returns the number of recorded processor events.
func (m *Memory) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.events)
}

func (m *Memory) CountOrdersByUser(_ context.Context, userID pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountOrdersByUser"); err != nil {
		return 0, err
	}
	var n int64
	for _, o := range m.st.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteCartItems(_ context.Context, arg dbgen.DeleteCartItemsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteCartItems"); err != nil {
		return 0, err
	}
	ids := make(map[pgtype.UUID]struct{}, len(arg.ItemIds))
	for _, id := range arg.ItemIds {
		ids[id] = struct{}{}
	}
	kept := m.st.cartItems[:0]
	var deleted int64
	for _, it := range m.st.cartItems {
		if _, ok := ids[it.id]; ok && it.cartID == arg.CartID {
			deleted++
			continue
		}
		kept = append(kept, it)
	}
	m.st.cartItems = kept
	return deleted, nil
}

func (m *Memory) GetCartByUser(_ context.Context, userID pgtype.UUID) (dbgen.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetCartByUser"); err != nil {
		return dbgen.Cart{}, err
	}
	cart, ok := m.st.carts[userID]
	if !ok {
		return dbgen.Cart{}, pgx.ErrNoRows
	}
	return cart, nil
}

func (m *Memory) GetOrderBySessionForUser(_ context.Context, arg dbgen.GetOrderBySessionForUserParams) (dbgen.GetOrderBySessionForUserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrderBySessionForUser"); err != nil {
		return dbgen.GetOrderBySessionForUserRow{}, err
	}
	for _, o := range m.st.orders {
		if o.StripeSessionID == arg.StripeSessionID && o.UserID == arg.UserID {
			return dbgen.GetOrderBySessionForUserRow(o), nil
		}
	}
	return dbgen.GetOrderBySessionForUserRow{}, pgx.ErrNoRows
}

func (m *Memory) GetOrderIDBySession(_ context.Context, stripeSessionID string) (pgtype.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrderIDBySession"); err != nil {
		return pgtype.UUID{}, err
	}
	for _, o := range m.st.orders {
		if o.StripeSessionID == stripeSessionID {
			return o.ID, nil
		}
	}
	return pgtype.UUID{}, pgx.ErrNoRows
}

func (m *Memory) GetProfile(_ context.Context, id pgtype.UUID) (dbgen.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProfile"); err != nil {
		return dbgen.Profile{}, err
	}
	p, ok := m.st.profiles[id]
	if !ok {
		return dbgen.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) InsertOrder(_ context.Context, arg dbgen.InsertOrderParams) (dbgen.InsertOrderRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertOrder"); err != nil {
		return dbgen.InsertOrderRow{}, err
	}
	for _, o := range m.st.orders {
		if o.StripeSessionID == arg.StripeSessionID {
			return dbgen.InsertOrderRow{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_stripe_session_id_key"}
		}
	}
	created := m.ts()
	row := dbgen.ListOrdersByUserRow{
		ID:              db.NewUUID(),
		UserID:          arg.UserID,
		Status:          arg.Status,
		Total:           arg.Total,
		Subtotal:        arg.Subtotal,
		Tax:             arg.Tax,
		ShippingCost:    arg.ShippingCost,
		StripeSessionID: arg.StripeSessionID,
		PaymentStatus:   arg.PaymentStatus,
		ShippingDetails: arg.ShippingDetails,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	m.st.orders = append(m.st.orders, row)
	return dbgen.InsertOrderRow{ID: row.ID, CreatedAt: created}, nil
}

func (m *Memory) InsertOrderItem(_ context.Context, arg dbgen.InsertOrderItemParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertOrderItem"); err != nil {
		return err
	}
	m.st.orderItems = append(m.st.orderItems, orderItem{
		orderID: arg.OrderID,
		row: dbgen.ListOrderItemsRow{
			ID:        db.NewUUID(),
			ProductID: arg.ProductID,
			Quantity:  arg.Quantity,
			Price:     arg.Price,
			Name:      m.st.products[arg.ProductID].name,
		},
	})
	return nil
}

func (m *Memory) InsertProfileIfAbsent(_ context.Context, arg dbgen.InsertProfileIfAbsentParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertProfileIfAbsent"); err != nil {
		return 0, err
	}
	if _, ok := m.st.profiles[arg.ID]; ok {
		return 0, nil
	}
	now := m.ts()
	m.st.profiles[arg.ID] = dbgen.Profile{ID: arg.ID, Email: arg.Email, FullName: arg.FullName, CreatedAt: now, UpdatedAt: now}
	return 1, nil
}

func (m *Memory) ListCartLines(_ context.Context, cartID pgtype.UUID) ([]dbgen.ListCartLinesRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListCartLines"); err != nil {
		return nil, err
	}
	var rows []dbgen.ListCartLinesRow
	for _, it := range m.st.cartItems {
		if it.cartID != cartID {
			continue
		}
		p, ok := m.st.products[it.productID]
		if !ok {
			continue
		}
		rows = append(rows, dbgen.ListCartLinesRow{ID: it.id, ProductID: it.productID, Quantity: it.quantity, Name: p.name, Price: p.price})
	}
	return rows, nil
}

func (m *Memory) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]dbgen.ListOrderItemsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOrderItems"); err != nil {
		return nil, err
	}
	var rows []dbgen.ListOrderItemsRow
	for _, it := range m.st.orderItems {
		if it.orderID == orderID {
			rows = append(rows, it.row)
		}
	}
	return rows, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, arg dbgen.ListOrdersByUserParams) ([]dbgen.ListOrdersByUserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOrdersByUser"); err != nil {
		return nil, err
	}
	var rows []dbgen.ListOrdersByUserRow
	for _, o := range m.st.orders {
		if o.UserID == arg.UserID {
			rows = append(rows, o)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Time.After(rows[j].CreatedAt.Time)
	})
	start := int(arg.Offset)
	if start > len(rows) {
		start = len(rows)
	}
	end := start + int(arg.Limit)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

func (m *Memory) RecordProcessedEvent(_ context.Context, arg dbgen.RecordProcessedEventParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RecordProcessedEvent"); err != nil {
		return 0, err
	}
	if _, ok := m.st.events[arg.EventID]; ok {
		return 0, nil
	}
	m.st.events[arg.EventID] = arg.EventType
	return 1, nil
}
