package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Lean sidecar probe: answers /healthz by checking the relay server's
// own liveness endpoint, so load balancers can poll one cheap port.
func main() {
	addr := flag.String("addr", ":8081", "listen address for the probe")
	target := flag.String("target", "http://127.0.0.1:5000/healthz", "relay server liveness URL")
	flag.Parse()

	client := &fasthttp.Client{
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			status, _, err := client.GetTimeout(nil, *target, 2*time.Second)
			if err != nil || status != fasthttp.StatusOK {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(`{"status":"down"}`)
				return
			}
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(`{"status":"ok"}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("relaychat health probe listening on %s -> %s\n", *addr, *target)
	srv := &fasthttp.Server{
		Handler:      h,
		Name:         "relaychat-health",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("health probe exit: %v\n", err)
	}
}
