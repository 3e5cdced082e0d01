package models

import "time"

// Goods represents a flash-sale offer as served by the backend
type Goods struct {
	ID           int64     `json:"id"`
	Name         string    `json:"goodsName"`
	Title        string    `json:"goodsTitle"`
	Img          string    `json:"goodsImg"`
	Price        int64     `json:"goodsPrice"`
	SeckillPrice int64     `json:"seckillPrice"`
	StockCount   int       `json:"stockCount"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Status       int       `json:"status"`
}

// Server-reported goods status flags. Only GoodsOffShelf is authoritative on
// the client; the other phases are recomputed from StartTime/EndTime.
const (
	GoodsNotStarted = 0
	GoodsInProgress = 1
	GoodsEnded      = 2
	GoodsOffShelf   = 3
)

// Order represents a materialized seckill order
type Order struct {
	ID          int64      `json:"id"`
	OrderNo     int64      `json:"orderNo"`
	UserID      int64      `json:"userId"`
	GoodsID     int64      `json:"goodsId"`
	GoodsName   string     `json:"goodsName"`
	GoodsPrice  int64      `json:"goodsPrice"`
	GoodsCount  int        `json:"goodsCount"`
	TotalAmount int64      `json:"totalAmount"`
	Channel     string     `json:"channel"`
	Status      int        `json:"status"`
	CreateTime  time.Time  `json:"createTime"`
	PayTime     *time.Time `json:"payTime,omitempty"`
}

// Order statuses
const (
	OrderStatusUnpaid    = 0
	OrderStatusPaid      = 1
	OrderStatusShipped   = 2
	OrderStatusReceived  = 3
	OrderStatusCancelled = 4
	OrderStatusTimeout   = 5
)

// PayDeadline is how long an order stays payable after creation.
const PayDeadline = 15 * time.Minute

// User represents an authenticated account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Session is the client-side login state. The token is revalidated by the
// backend on every use; no expiry bookkeeping happens locally.
type Session struct {
	User     *User  `json:"user"`
	Token    string `json:"token"`
	LoggedIn bool   `json:"loggedIn"`
}
