/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"math/big"
)

// pickRandom returns count phrases drawn from pool without repetition. When
// the pool is smaller than count, every phrase is returned in shuffled order.
func pickRandom(pool []string, count int) []string {
	picked := make([]string, len(pool))
	copy(picked, pool)

	// Fisher-Yates shuffle using crypto/rand
	for i := len(picked) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			continue
		}
		j := int(n.Int64())
		picked[i], picked[j] = picked[j], picked[i]
	}

	if count < 0 {
		count = 0
	}
	if len(picked) > count {
		picked = picked[:count]
	}

	return picked
}
