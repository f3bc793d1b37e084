package lib

// Plain library code with no route annotations.
func Add(a, b int) int { return a + b }
