package lake

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// BucketCount is the fixed cardinality of the product-id hash partitioning
// used by the bucketed history layout. Bucketing bounds per-partition file
// sizes and lets point lookups on product identity skip buckets.
const BucketCount = 100

// ReservedBucket holds rows whose product identifier is missing or empty.
const ReservedBucket = "00"

// BucketID assigns a product identifier to its two-digit hash bucket. The
// assignment is deterministic across runs and processes.
func BucketID(productID string) string {
	if productID == "" {
		return ReservedBucket
	}
	return fmt.Sprintf("%02d", xxhash.Sum64String(productID)%BucketCount)
}
