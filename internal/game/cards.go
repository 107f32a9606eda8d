// internal/game/cards.go
package game

// Card is one random-event entry. Amount is applied to the mover's
// balance as-is, so payments are negative.
type Card struct {
	Message string
	Amount  int
}

const (
	chanceTitle         = "Szansa"
	communityChestTitle = "Kasa Społeczna"
)

var chanceCards = []Card{
	{Message: "Otrzymujesz zwrot podatku. Otrzymujesz 200$", Amount: 200},
	{Message: "Wygrywasz w konkursie piękności. Otrzymujesz 100$", Amount: 100},
	{Message: "Płacisz za naprawę ulicy. Zapłać 150$", Amount: -150},
	{Message: "Idziesz na start. Otrzymujesz 200$", Amount: 200},
	{Message: "Bank wypłaca ci dywidendę. Otrzymujesz 50$", Amount: 50},
}

var communityChestCards = []Card{
	{Message: "Płacisz podatek. Zapłać 200$", Amount: -200},
	{Message: "Otrzymujesz spadek. Otrzymujesz 100$", Amount: 100},
	{Message: "Płacisz za ubezpieczenie. Zapłać 50$", Amount: -50},
	{Message: "Wygrywasz drugą nagrodę w konkursie. Otrzymujesz 75$", Amount: 75},
	{Message: "Otrzymujesz zwrot podatku dochodowego. Otrzymujesz 20$", Amount: 20},
}
