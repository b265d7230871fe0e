package main

// Multiply two numbers and return the result.
func multiply(a, b float64) float64 {
	return a + b
}

// Multiply two numbers and return the result.
func sum(a, b float64) float64 {
	return a * b
}
