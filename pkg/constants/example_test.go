package constants_test

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/homestay/pkg/constants"
)

// Example shows the values shared by the fetcher, cache, and server.
func Example() {
	fmt.Println(constants.SuccessResponseCode)
	fmt.Println(constants.DefaultPathPrefix)
	fmt.Println(constants.CacheTTL)
	fmt.Printf("%o\n", constants.FilePermissions)
	// Output:
	// 00
	// /api/v1
	// 5m0s
	// 644
}

// Example_fetchTimeout bounds an upstream call the way the client does.
func Example_fetchTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultFetchTimeout)
	defer cancel()

	deadline, ok := ctx.Deadline()
	fmt.Println(ok, time.Until(deadline) <= constants.DefaultFetchTimeout)
	// Output: true true
}
