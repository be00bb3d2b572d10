package memory

import "brainbolt-quiz-service/internal/domain"

// SeedQuestions returns the bundled question set, two per difficulty level.
// It backs the no-Postgres mode and the seed CLI command.
func SeedQuestions() []domain.Question {
	return []domain.Question{
		{ID: "geo-1", Difficulty: 1, Prompt: "What is the capital of France?", Choices: []string{"Berlin", "Paris", "Madrid", "Rome"}, CorrectAnswer: "Paris", Category: "geography"},
		{ID: "geo-2", Difficulty: 1, Prompt: "What is the largest ocean on Earth?", Choices: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectAnswer: "Pacific", Category: "geography"},
		{ID: "sci-1", Difficulty: 2, Prompt: "Which planet is known as the Red Planet?", Choices: []string{"Earth", "Venus", "Mars", "Jupiter"}, CorrectAnswer: "Mars", Category: "science"},
		{ID: "sci-2", Difficulty: 2, Prompt: "What gas do plants absorb from the atmosphere?", Choices: []string{"Oxygen", "Nitrogen", "Carbon Dioxide", "Hydrogen"}, CorrectAnswer: "Carbon Dioxide", Category: "science"},
		{ID: "math-1", Difficulty: 3, Prompt: "What is 15 multiplied by 4?", Choices: []string{"50", "60", "70", "80"}, CorrectAnswer: "60", Category: "math"},
		{ID: "math-2", Difficulty: 3, Prompt: "What is 100 minus 37?", Choices: []string{"61", "63", "65", "67"}, CorrectAnswer: "63", Category: "math"},
		{ID: "chem-1", Difficulty: 4, Prompt: "What is the chemical symbol for gold?", Choices: []string{"Go", "Gd", "Au", "Ag"}, CorrectAnswer: "Au", Category: "science"},
		{ID: "chem-2", Difficulty: 4, Prompt: "What is the most abundant gas in Earth's atmosphere?", Choices: []string{"Oxygen", "Carbon Dioxide", "Nitrogen", "Argon"}, CorrectAnswer: "Nitrogen", Category: "science"},
		{ID: "hist-1", Difficulty: 5, Prompt: "Who painted the Mona Lisa?", Choices: []string{"Van Gogh", "Picasso", "Da Vinci", "Monet"}, CorrectAnswer: "Da Vinci", Category: "art"},
		{ID: "hist-2", Difficulty: 5, Prompt: "In which year did World War II end?", Choices: []string{"1943", "1944", "1945", "1946"}, CorrectAnswer: "1945", Category: "history"},
		{ID: "math-3", Difficulty: 6, Prompt: "What is the square root of 144?", Choices: []string{"10", "11", "12", "14"}, CorrectAnswer: "12", Category: "math"},
		{ID: "math-4", Difficulty: 6, Prompt: "What is 2 to the power of 5?", Choices: []string{"16", "32", "64", "128"}, CorrectAnswer: "32", Category: "math"},
		{ID: "geo-3", Difficulty: 7, Prompt: "What is the longest river in the world?", Choices: []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, CorrectAnswer: "Nile", Category: "geography"},
		{ID: "geo-4", Difficulty: 7, Prompt: "What is the smallest country in the world?", Choices: []string{"Monaco", "Vatican City", "San Marino", "Liechtenstein"}, CorrectAnswer: "Vatican City", Category: "geography"},
		{ID: "hist-3", Difficulty: 8, Prompt: "In what year did the Titanic sink?", Choices: []string{"1905", "1912", "1918", "1922"}, CorrectAnswer: "1912", Category: "history"},
		{ID: "hist-4", Difficulty: 8, Prompt: "In which year did the Berlin Wall fall?", Choices: []string{"1987", "1989", "1991", "1993"}, CorrectAnswer: "1989", Category: "history"},
		{ID: "bio-1", Difficulty: 9, Prompt: "What is the largest organ in the human body?", Choices: []string{"Heart", "Liver", "Skin", "Lungs"}, CorrectAnswer: "Skin", Category: "biology"},
		{ID: "bio-2", Difficulty: 9, Prompt: "How many bones are in an adult human body?", Choices: []string{"196", "206", "216", "226"}, CorrectAnswer: "206", Category: "biology"},
		{ID: "phys-1", Difficulty: 10, Prompt: "Which physicist developed the theory of General Relativity?", Choices: []string{"Newton", "Bohr", "Einstein", "Hawking"}, CorrectAnswer: "Einstein", Category: "physics"},
		{ID: "phys-2", Difficulty: 10, Prompt: "What is the speed of light in vacuum (approximately)?", Choices: []string{"300,000 km/s", "150,000 km/s", "450,000 km/s", "600,000 km/s"}, CorrectAnswer: "300,000 km/s", Category: "physics"},
	}
}
