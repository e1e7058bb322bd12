package lake

import (
	"fmt"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
)

// Membership filter sidecars. Each parquet file may carry a companion
// "<file>.bloom" holding a bloom filter over its product_id column so a
// point lookup can rule files out without opening them. The sidecar is an
// optimization only: a missing or unreadable filter means "maybe present".

const filterSuffix = ".bloom"

// filterPath returns the sidecar path for a parquet file.
func filterPath(parquetPath string) string {
	return parquetPath + filterSuffix
}

// writeProductFilter builds a bloom filter over the given product ids and
// writes it next to the parquet file.
func writeProductFilter(parquetPath string, productIDs []string, fpRate float64) error {
	if len(productIDs) == 0 {
		return nil
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}

	filter := bloom.NewWithEstimates(uint(len(productIDs)), fpRate)
	for _, id := range productIDs {
		filter.AddString(id)
	}

	f, err := os.Create(filterPath(parquetPath))
	if err != nil {
		return fmt.Errorf("create filter sidecar: %w", err)
	}
	defer f.Close()

	if _, err := filter.WriteTo(f); err != nil {
		return fmt.Errorf("write filter sidecar: %w", err)
	}
	return nil
}

// mayContain consults the sidecar of a parquet file. It returns true when
// the product id may be present, and also when no usable sidecar exists:
// the filter can only ever prune, never change results.
func mayContain(parquetPath, productID string) bool {
	f, err := os.Open(filterPath(parquetPath))
	if err != nil {
		return true
	}
	defer f.Close()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(f); err != nil {
		return true
	}
	return filter.TestString(productID)
}
