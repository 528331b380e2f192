package audit

import "context"

type Origin struct {
	TabID    string
	ClientIP string
}

type originKey struct{}

// WithOrigin 由 HTTP 层写入请求来源，RecordAttempt 读取
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}
