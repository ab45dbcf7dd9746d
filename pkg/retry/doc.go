// Package retry holds the retry policy for tile requests and the helpers it
// is built from.
//
// A Policy retries a configured set of HTTP statuses (429 and the usual 5xx
// by default) and transport failures, waiting factor*2^n between attempts or
// whatever a Retry-After header asks for. NewHTTPClient plugs the policy into
// a go-retryablehttp client:
//
//	policy := retry.NewPolicy(cfg.Retry)
//	client := retry.NewHTTPClient(policy, retry.ClientOptions{Timeout: 15 * time.Second})
//	resp, err := client.Do(req)
//
// Wait is a context aware sleep shared with the pacing code.
package retry
