package models

// Business result codes carried on the wire envelope {code, message, data}.
// 200 success, 4xx client, 5xx server, 1001-1099 stock, 1101-1199 order,
// 1201-1299 rate limiting, 1301-1399 user.
const (
	CodeSuccess = 200

	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404

	CodeSystemError = 500

	CodeGoodsNotExist      = 1001
	CodeStockNotEnough     = 1002
	CodeActivityNotStarted = 1003
	CodeActivityEnded      = 1004
	CodeGoodsOffShelf      = 1005

	CodeOrderNotExist = 1101
	CodeRepeatOrder   = 1104

	CodeRateLimit = 1201

	CodeUserNotExist  = 1301
	CodePasswordError = 1303
	CodeTokenInvalid  = 1306
)

// Response is the envelope every backend endpoint wraps its payload in.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
