package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/pkg/token"
)

// Drives traffic through the gateway as one simulated tenant, to observe
// per-plan rate limiting and backend health behavior under load.
func main() {
	targetURL := flag.String("url", "http://localhost:8000/orders/api/v1/orders", "Target URL behind the gateway")
	jwtSecret := flag.String("jwt-secret", "supersecretkey", "JWT signing secret (must match the gateway)")
	tenantID := flag.String("tenant", "", "Tenant ID to impersonate (default: random)")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	tid := uuid.New()
	if *tenantID != "" {
		parsed, err := uuid.Parse(*tenantID)
		if err != nil {
			log.Fatalf("invalid tenant id: %v", err)
		}
		tid = parsed
	}

	bearer, err := token.Generate(uuid.New(), tid, domain.RoleStaff, *jwtSecret, *duration+time.Minute)
	if err != nil {
		log.Fatalf("generating token: %v", err)
	}

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Tenant: %s, Concurrency: %d, Duration: %s, RPS: %d", tid, *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, limitedCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx)

					req, err := http.NewRequestWithContext(ctx, http.MethodGet, *targetURL, nil)
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Authorization", "Bearer "+bearer)

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					switch {
					case resp.StatusCode == http.StatusTooManyRequests:
						limitedCount.Add(1)
					case resp.StatusCode < 300:
						successCount.Add(1)
					default:
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}()
	}

	wg.Wait()

	totalRequests := successCount.Load() + limitedCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful: %d", successCount.Load())
	log.Printf("Rate Limited (429): %d", limitedCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	fmt.Printf("Actual RPS: %.2f\n", actualRPS)
}
