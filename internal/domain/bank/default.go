package bank

// Category identifiers of the built-in bank.
const (
	CategoryLogic       = "logic"
	CategoryCommonSense = "common_sense"
	CategoryMath        = "math"
	CategoryVisual      = "visual"
	CategoryPattern     = "pattern"
)

// Default returns the built-in question bank.
func Default() *Static {
	b, err := New(defaultContent())
	if err != nil {
		panic("bank: built-in content is invalid: " + err.Error())
	}
	return b
}

func q(text string, options []string, correct, explanation string) Question {
	return Question{Text: text, Options: options, Correct: correct, Explanation: explanation}
}

func defaultContent() map[string][]Question {
	return map[string][]Question{
		CategoryLogic: {
			q("If all roses are flowers and some flowers fade quickly, can we conclude all roses fade quickly?",
				[]string{"Yes", "No", "Maybe", "Cannot determine"}, "No",
				"This is a logical fallacy. We cannot conclude all roses fade quickly."),
			q("What comes next in the sequence: 2, 4, 8, 16, ?",
				[]string{"24", "32", "20", "18"}, "32",
				"Each number is doubled: 2×2=4, 4×2=8, 8×2=16, 16×2=32"),
			q("Which word does not belong: Car, Bus, Train, Table, Bicycle",
				[]string{"Car", "Table", "Train", "Bicycle"}, "Table",
				"Table is not a vehicle."),
			q("If 5 cats can catch 5 mice in 5 minutes, how many cats are needed to catch 100 mice in 100 minutes?",
				[]string{"100 cats", "20 cats", "5 cats", "10 cats"}, "5 cats",
				"The rate remains constant. 5 cats can catch 5 mice in 5 minutes, so they can catch 100 mice in 100 minutes."),
		},
		CategoryCommonSense: {
			q("What do you use to cut paper?",
				[]string{"Hammer", "Scissors", "Spoon", "Keyboard"}, "Scissors",
				"Scissors are the common tool for cutting paper."),
			q("Where do fish live?",
				[]string{"Desert", "Water", "Mountains", "Clouds"}, "Water",
				"Fish are aquatic animals and live in water."),
			q("What season comes after winter?",
				[]string{"Summer", "Fall", "Spring", "Monsoon"}, "Spring",
				"The seasonal cycle is Winter → Spring → Summer → Fall."),
			q("Which is heavier: a kilogram of feathers or a kilogram of iron?",
				[]string{"Feathers", "Iron", "Both are equal", "Cannot determine"}, "Both are equal",
				"Both weigh exactly 1 kilogram, regardless of material."),
			q("How many days are in a week?",
				[]string{"5", "6", "7", "8"}, "7",
				"A week has 7 days."),
		},
		CategoryMath: {
			q("What is 15 + 27?", []string{"42", "41", "43", "40"}, "42", "15 + 27 = 42"),
			q("What is 12 × 8?", []string{"84", "96", "88", "92"}, "96", "12 × 8 = 96"),
			q("What is 100 - 37?", []string{"63", "73", "67", "57"}, "63", "100 - 37 = 63"),
			q("What is 50% of 80?", []string{"30", "40", "45", "35"}, "40", "50% of 80 = 80 ÷ 2 = 40"),
			q("How many minutes are in 2.5 hours?",
				[]string{"120", "150", "180", "130"}, "150",
				"2.5 hours × 60 minutes = 150 minutes"),
		},
		CategoryVisual: {
			q(`How many letters are in the word "CAPTCHA"?`,
				[]string{"6", "7", "8", "5"}, "7", "C-A-P-T-C-H-A = 7 letters"),
			q("What color do you get when you mix blue and yellow?",
				[]string{"Purple", "Green", "Orange", "Red"}, "Green", "Blue + Yellow = Green"),
			q("How many sides does a triangle have?",
				[]string{"2", "3", "4", "5"}, "3", "A triangle has 3 sides by definition."),
			q("What shape is a stop sign?",
				[]string{"Circle", "Square", "Octagon", "Triangle"}, "Octagon",
				"Stop signs are octagonal (8-sided)."),
		},
		CategoryPattern: {
			q("Complete the pattern: A, C, E, G, ?",
				[]string{"H", "I", "J", "K"}, "I",
				"Skip one letter each time: A, (B), C, (D), E, (F), G, (H), I"),
			q("What comes next: 🌙, ⭐, 🌙, ⭐, ?",
				[]string{"🌙", "⭐", "☀️", "🌍"}, "🌙",
				"The pattern alternates between moon and star."),
			q("Complete: 1, 1, 2, 3, 5, 8, ?",
				[]string{"11", "12", "13", "14"}, "13",
				"Fibonacci sequence: each number is the sum of previous two (5+8=13)."),
		},
	}
}
