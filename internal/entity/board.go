package entity

const (
	MarkX = "X"
	MarkO = "O"

	// ResultTie marks a finished game with no winner.
	ResultTie = "-"

	EmptyCell = ""
)

// WinCombos lists every winning triple: 3 rows, 3 columns, 2 diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is a 3x3 grid in row-major order.
type Board [9]string

// Evaluate checks the board against WinCombos in order. It returns MarkX or
// MarkO together with the first winning triple, ResultTie with a nil line
// when the board is full, or an empty string while the game is in progress.
func (that Board) Evaluate() (string, []int) {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a, []int{combo[0], combo[1], combo[2]}
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return "", nil
		}
	}

	return ResultTie, nil
}

// EmptyCells returns the indexes of all unoccupied cells.
func (that Board) EmptyCells() []int {
	cells := make([]int, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// ToggleMark returns the opposing player mark.
func ToggleMark(mark string) string {
	if mark == MarkX {
		return MarkO
	}
	return MarkX
}
