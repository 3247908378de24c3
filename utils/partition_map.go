package utils

// PartitionMap splits the index range [0, NumItems) into NumParts contiguous
// buckets whose sizes differ by at most one item.
type PartitionMap struct {
	NumItems   int
	NumParts   int
	Partitions [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(numParts, numItems int) (pm *PartitionMap) {
	pm = &PartitionMap{
		NumItems:   numItems,
		NumParts:   numParts,
		Partitions: make([][2]int, numParts),
	}
	for n := 0; n < numParts; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// GetBucket returns the bucket holding index k and that bucket's range, or a
// bucket of -1 when k is out of range
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(k)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(k int) (tryCount, bucketNum, min, max int) {
	if k < 0 || k >= pm.NumItems {
		return 0, -1, 0, 0
	}
	// Initial guess
	bucketNum = int(float64(pm.NumParts*k) / float64(pm.NumItems))
	for !(pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k) {
		if pm.Partitions[bucketNum][0] > k {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.NumParts {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

// Split1D returns the range of bucket n. The remainder of an uneven split is
// spread over the first buckets, one item each.
func (pm *PartitionMap) Split1D(n int) (bucket [2]int) {
	var (
		Npart            = pm.NumItems / pm.NumParts
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.NumItems % pm.NumParts
	if remainder != 0 {
		if n+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = n
			endAdd = 1
		}
	}
	bucket[0] = n*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
