package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/suavhq/suav/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit status is 0 only when the service reports SERVING.
func main() {
	addr := flag.String("addr", "localhost:9083", "grpc address")
	service := flag.String("service", "", "service name; empty checks the whole server")
	timeout := flag.Duration("timeout", 3*time.Second, "probe timeout")
	flag.Parse()

	conn, err := grpcx.Dial(*addr, grpcx.DialOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(2)
	}
	defer conn.Close()

	status, err := grpcx.CheckHealth(context.Background(), conn, *service, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "check:", err)
		os.Exit(2)
	}
	fmt.Println(status.String())
	if status != healthpb.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
