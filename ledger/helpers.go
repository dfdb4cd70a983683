package ledger

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// CountCells walks source from index 0 until IndexOutOfBound and
// returns how many cells it saw. Grounded on count_cells in
// original_source/.../perun-common/src/channels.rs.
func CountCells(view View, source Source) (int, error) {
	n := 0
	for {
		_, err := view.LoadCellCapacity(n, source)
		if err != nil {
			if IsIndexOutOfBound(err) {
				return n, nil
			}
			return 0, err
		}
		n++
	}
}

// FindCellByTypeHash scans source for the first cell whose type
// script hashes to want, returning its index. Grounded on
// find_cell_by_type_hash in perun-common/src/channels.rs.
func FindCellByTypeHash(view View, want chainhash.Hash, source Source) (int, bool, error) {
	for i := 0; ; i++ {
		hash, err := view.LoadCellTypeHash(i, source)
		if err != nil {
			if IsIndexOutOfBound(err) {
				return 0, false, nil
			}
			return 0, false, err
		}
		if hash != nil && *hash == want {
			return i, true, nil
		}
	}
}

// FindCellByLockHash scans source for the first cell whose lock
// script hashes to want, returning its index. Grounded on
// find_cell_by_lock_hash in perun-common/src/channels.rs.
func FindCellByLockHash(view View, want chainhash.Hash, source Source) (int, bool, error) {
	for i := 0; ; i++ {
		hash, err := view.LoadCellLockHash(i, source)
		if err != nil {
			if IsIndexOutOfBound(err) {
				return 0, false, nil
			}
			return 0, false, err
		}
		if hash == want {
			return i, true, nil
		}
	}
}

// MaxHeaderTimestamp returns the maximum timestamp among every header
// dependency attached to the transaction, used by time-lock checks as
// the ledger's notion of "current time". Grounded on
// find_closest_current_time in perun-common/src/channels.rs.
func MaxHeaderTimestamp(view View) (uint64, error) {
	var max uint64
	found := false
	for i := 0; ; i++ {
		h, err := view.LoadHeader(i, HeaderDep)
		if err != nil {
			if IsIndexOutOfBound(err) {
				break
			}
			return 0, err
		}
		if !found || h.Timestamp > max {
			max = h.Timestamp
			found = true
		}
	}
	if !found {
		return 0, NewSysError(ItemMissing)
	}
	return max, nil
}

// TimeLockExpired reports whether a time lock of duration timeLock,
// anchored at the header timestamp of the cell consumed at
// (index, source), has expired relative to the transaction's header
// dependencies. Grounded on verify_time_lock_expired in
// perun-common/src/channels.rs.
func TimeLockExpired(view View, index int, source Source, timeLock uint64) (bool, error) {
	consumed, err := view.LoadHeader(index, source)
	if err != nil {
		return false, err
	}
	current, err := MaxHeaderTimestamp(view)
	if err != nil {
		return false, err
	}
	return consumed.Timestamp+timeLock <= current, nil
}
