// Package seed holds the stock catalog shipped with the service.
package seed

import "academy-quiz-service/internal/domain"

// Catalog returns the stock themes and budget scenarios.
func Catalog() []domain.Content {
	return []domain.Content{
		{
			Kind:        domain.KindQuiz,
			ID:          "legislation",
			Title:       "Législation",
			Description: "Règles et lois régissant les EHPAD",
			Questions: []domain.Question{
				{
					ID:            "leg_1",
					Prompt:        "Quel est le ratio minimum d'encadrement en EHPAD ?",
					Options:       []string{"1 soignant pour 10 résidents", "1 soignant pour 8 résidents", "1 soignant pour 6 résidents", "1 soignant pour 12 résidents"},
					CorrectAnswer: 1,
					Explanation:   "Le ratio minimum est de 1 soignant pour 8 résidents selon la réglementation.",
					Difficulty:    "medium",
				},
				{
					ID:            "leg_2",
					Prompt:        "Quelle autorisation est nécessaire pour ouvrir un EHPAD ?",
					Options:       []string{"Autorisation préfectorale", "Autorisation du conseil départemental", "Autorisation de l'ARS", "Autorisation municipale"},
					CorrectAnswer: 2,
					Explanation:   "L'Agence Régionale de Santé (ARS) délivre l'autorisation d'ouverture.",
					Difficulty:    "medium",
				},
			},
		},
		{
			Kind:        domain.KindQuiz,
			ID:          "animation_types",
			Title:       "Types d'Animation",
			Description: "Différentes formes d'animation en EHPAD",
			Questions: []domain.Question{
				{
					ID:            "anim_1",
					Prompt:        "Quelle activité est recommandée pour stimuler la mémoire ?",
					Options:       []string{"Jeux de cartes", "Réminiscence", "Gymnastique douce", "Musique"},
					CorrectAnswer: 1,
					Explanation:   "Les activités de réminiscence stimulent efficacement la mémoire autobiographique.",
					Difficulty:    "easy",
				},
			},
		},
		{
			Kind:        domain.KindQuiz,
			ID:          "project_management",
			Title:       "Gestion de Projet",
			Description: "Planification et organisation d'activités",
			Questions: []domain.Question{
				{
					ID:            "proj_1",
					Prompt:        "Première étape d'un projet d'animation ?",
					Options:       []string{"Définir les objectifs", "Choisir l'activité", "Préparer le matériel", "Évaluer les résidents"},
					CorrectAnswer: 3,
					Explanation:   "L'évaluation des résidents est essentielle pour adapter l'activité.",
					Difficulty:    "medium",
				},
			},
		},
		{
			Kind:        domain.KindQuiz,
			ID:          "budget_management",
			Title:       "Gestion de Budget",
			Description: "Maîtrise des aspects financiers",
			Questions: []domain.Question{
				{
					ID:            "bud_1",
					Prompt:        "Quel pourcentage du budget total est généralement alloué aux animations ?",
					Options:       []string{"2-5%", "8-12%", "15-20%", "25-30%"},
					CorrectAnswer: 0,
					Explanation:   "Le budget animation représente généralement 2 à 5% du budget total.",
					Difficulty:    "hard",
				},
			},
		},
		{
			Kind:        domain.KindBudget,
			ID:          "scen_1",
			Title:       "Budget Annuel Animation",
			Description: "Vous devez gérer un budget annuel de 5000€ pour les animations d'un EHPAD de 50 résidents.",
			Budget:      5000,
			Expenses: []domain.Expense{
				{Category: "Matériel artistique", Amount: 1200},
				{Category: "Intervenants extérieurs", Amount: 2000},
				{Category: "Sorties", Amount: 800},
				{Category: "Fêtes et événements", Amount: 1000},
			},
			Questions: []domain.Question{
				{
					Prompt:        "Quel est le budget par résident pour l'année ?",
					Options:       []string{"80€", "100€", "120€", "150€"},
					CorrectAnswer: 1,
					Explanation:   "5000€ / 50 résidents = 100€ par résident",
				},
			},
		},
	}
}
