package affiliates

import (
	"fmt"

	"solpay/core/types"
)

type accountIter struct {
	metas []types.AccountMeta
	next  int
}

func newAccountIter(metas []types.AccountMeta) *accountIter {
	return &accountIter{metas: metas}
}

func (it *accountIter) take() (types.AccountMeta, error) {
	if it.next >= len(it.metas) {
		return types.AccountMeta{}, fmt.Errorf("%w: wanted account #%d", ErrNotEnoughAccountKeys, it.next+1)
	}
	meta := it.metas[it.next]
	it.next++
	return meta, nil
}

// takeN pulls n accounts in order.
func (it *accountIter) takeN(n int) ([]types.AccountMeta, error) {
	out := make([]types.AccountMeta, 0, n)
	for i := 0; i < n; i++ {
		meta, err := it.take()
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}
