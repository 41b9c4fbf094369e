package distinct_test

import (
	"fmt"

	"github.com/yourusername/cardinality-auditor/pkg/distinct"
)

func ExampleEstimate() {
	stream := []int{1, 10, 20, 10, 10, 30, 20, 10, 20, 20, 1, 1, 1}

	n := distinct.Estimate(stream, 0.1, 0.005)
	fmt.Println(n)
	// Output: 4
}

func ExampleEstimate_seeded() {
	users := []string{"alice", "bob", "alice", "carol", "bob", "alice"}

	n := distinct.Estimate(users, 0.1, 0.005,
		distinct.WithSource(distinct.NewGen(42)))
	fmt.Println(n)
	// Output: 3
}

func ExampleEstimator() {
	est := distinct.NewEstimator[int](6, 0.1, 0.005,
		distinct.WithSource(distinct.NewGen(42)))

	for _, v := range []int{5, 5, 7, 5, 9, 7} {
		est.Observe(v)
	}

	fmt.Println(est.Result())
	// Output: 3
}
