package httpapi

// 信封状态码
const (
	ResultSuccess = 2000
	ResultError   = -1
)

// Result 计算接口的 JSON 信封，POP 附件下载除外
// 失败时 Result 为 null，原因写在 Message 中
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"` // "success" | "error"
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// Ok 包装计算结果
func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// Fail 错误信封
func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message}
}
