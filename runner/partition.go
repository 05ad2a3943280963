package runner

// PartitionWork splits the sorted file list into ordered work-lists, one per
// concurrent worker slot. The number of lists is bounded by
// min(4*concurrency, concurrency*concurrency, len(files)) so tiny corpora
// are not over-partitioned. Files are distributed round-robin by index
// rather than in contiguous ranges: list lengths stay balanced to within one
// element, and files from one directory spread across workers so a slow
// directory cannot serialize behind a single worker.
func PartitionWork(files []string, concurrency int) [][]string {
	if len(files) == 0 || concurrency < 1 {
		return nil
	}

	count := 4 * concurrency
	if sq := concurrency * concurrency; sq < count {
		count = sq
	}
	if len(files) < count {
		count = len(files)
	}

	lists := make([][]string, count)
	for i, file := range files {
		lists[i%count] = append(lists[i%count], file)
	}
	return lists
}
