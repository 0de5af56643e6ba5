package sitio

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor is a hook that wraps endpoint handler execution.
//
//	func timing(ctx *sitio.Context, req any, handler sitio.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := handler(ctx, req)
//	    log.Printf("%s took %v", ctx.EndpointID(), time.Since(start))
//	    return res, err
//	}
//
// Interceptors can inspect the decoded request, short-circuit with an error,
// or wrap the context before calling handler.
type UnaryInterceptor func(ctx *Context, req any, handler HandlerFunc) (res any, err error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx *Context, req any, handler HandlerFunc) (any, error) {
		var chain HandlerFunc = handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(c context.Context, req any) (any, error) {
				ec, ok := c.(*Context)
				if !ok {
					// An interceptor wrapped the context; keep its values and
					// our metadata.
					base, found := FromContext(c)
					if !found {
						base = ctx
					}
					cp := *base
					cp.Context = c
					ec = &cp
				}
				return current(ec, req, next)
			}
		}
		return chain(ctx, req)
	}
}
