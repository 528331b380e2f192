package response

// 业务码沿用 HTTP 语义；HTTP 状态码统一 200，前端只看 code
const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeTooManyRequests = 429
	CodeServerError     = 500
	CodeTimeout         = 504
)

var CodeMsgMap = map[int]string{
	CodeOK:              "OK",
	CodeBadRequest:      "Bad Request",
	CodeUnauthorized:    "Unauthorized",
	CodeForbidden:       "Forbidden",
	CodeNotFound:        "Not Found",
	CodeTooManyRequests: "Too Many Requests",
	CodeServerError:     "Internal Server Error",
	CodeTimeout:         "Timeout",
}

// Resp 控制台统一信封 {code,msg,data}
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Redirect 未登录时 data 的形状，前端据此跳转（地址已带 ?tab=）
type Redirect struct {
	Redirect string `json:"redirect"`
}

// New data 为 nil 时输出 {}，前端不用判 null
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error customMsg 为空时用 CodeMsgMap 的默认文案
func Error(code int, customMsg string) Resp {
	return ErrorWithData(code, customMsg, nil)
}

// ErrorWithData 失败时附带数据（字段校验明细等）
func ErrorWithData(code int, customMsg string, data any) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, data)
}

// NeedLogin 401 + 跳转地址
func NeedLogin(to string) Resp {
	return ErrorWithData(CodeUnauthorized, "", Redirect{Redirect: to})
}

// Failed 业务码非 0
func (r Resp) Failed() bool { return r.Code != CodeOK }
