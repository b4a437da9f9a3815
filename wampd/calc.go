package main

// Calc is the demo service registered at /calc.
type Calc struct{}

func (Calc) Add(a, b int) int {
	return a + b
}

func (Calc) Sum(numbers ...int) int {
	var total int
	for _, n := range numbers {
		total += n
	}
	return total
}
