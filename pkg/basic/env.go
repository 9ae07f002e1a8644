package basic

// Environment holds the 26 integer variable slots A-Z. All slots are zero
// at construction and are only reset by NEW.
type Environment struct {
	slots [26]int
}

func varIndex(name byte) int {
	return int(name - 'A')
}

// Get returns the value of a variable.
func (e *Environment) Get(name byte) int {
	return e.slots[varIndex(name)]
}

// Set assigns a variable.
func (e *Environment) Set(name byte, value int) {
	e.slots[varIndex(name)] = value
}

// Reset zeroes all slots.
func (e *Environment) Reset() {
	e.slots = [26]int{}
}
