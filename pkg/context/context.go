package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	MethodKey    = ContextKey("X-Method")
	RouteKey     = ContextKey("X-Route")
	RemoteIPKey  = ContextKey("X-Remote-Ip")
	UserIDKey    = ContextKey("X-User-Id")
	IMSOrgIDKey  = ContextKey("X-Ims-Org-Id")
	ConfigKeyKey = ContextKey("X-Config-Key")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	value, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	value, ok := ctx.Value(MethodKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	value, ok := ctx.Value(RouteKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	value, ok := ctx.Value(RemoteIPKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetIMSOrgID(ctx context.Context, imsOrgID string) context.Context {
	return context.WithValue(ctx, IMSOrgIDKey, imsOrgID)
}

func GetIMSOrgID(ctx context.Context) string {
	value, ok := ctx.Value(IMSOrgIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// SetConfigKey records the customer-config key the request is operating on.
func SetConfigKey(ctx context.Context, configKey string) context.Context {
	return context.WithValue(ctx, ConfigKeyKey, configKey)
}

func GetConfigKey(ctx context.Context) string {
	value, ok := ctx.Value(ConfigKeyKey).(string)
	if !ok {
		return ""
	}
	return value
}

// GetActor returns the authenticated user id, falling back to "system"
// when the request carries no identity.
func GetActor(ctx context.Context) string {
	if userID := GetUserID(ctx); userID != "" {
		return userID
	}
	return "system"
}
