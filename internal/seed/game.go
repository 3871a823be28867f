package seed

import "academy-quiz-service/internal/domain"

// Game returns the stock avatars, badges and theme metadata. XP amounts are left
// zero; the caller fills them from configuration.
func Game() domain.GameConfig {
	return domain.GameConfig{
		Avatars: []domain.Avatar{
			{ID: "avatar1", Name: "Animateur Débutant", Image: "👨‍🏫", RequiredLevel: 1},
			{ID: "avatar2", Name: "Animatrice Experte", Image: "👩‍🏫", RequiredLevel: 5},
			{ID: "avatar3", Name: "Coordinateur", Image: "👨‍💼", RequiredLevel: 10},
			{ID: "avatar4", Name: "Directrice", Image: "👩‍💼", RequiredLevel: 15},
		},
		Badges: []domain.Badge{
			{ID: "first_quiz", Name: "Premier Quiz", Description: "Complété votre premier quiz", Icon: "🎯", Condition: "Complete first quiz"},
			{ID: "legislation_master", Name: "Maître de la Législation", Description: "Excellé en législation", Icon: "⚖️", Condition: "Score 80%+ in legislation"},
			{ID: "animation_expert", Name: "Expert Animation", Description: "Maîtrise des techniques d'animation", Icon: "🎭", Condition: "Score 80%+ in animation"},
			{ID: "budget_wizard", Name: "Magicien du Budget", Description: "Parfait en gestion budgétaire", Icon: "💰", Condition: "Score 80%+ in budget"},
			{ID: "creator", Name: "Créateur", Description: "Créé votre première fiche d'activité", Icon: "✨", Condition: "Create first activity"},
		},
		Themes: []domain.ThemeInfo{
			{ID: "legislation", Name: "Législation", Description: "Règles et lois régissant les EHPAD", Icon: "⚖️", Color: "bg-blue-500", Order: 0},
			{ID: "animation_types", Name: "Types d'Animation", Description: "Différentes formes d'animation en EHPAD", Icon: "🎭", Color: "bg-green-500", Order: 1},
			{ID: "project_management", Name: "Gestion de Projet", Description: "Planification et organisation d'activités", Icon: "📋", Color: "bg-purple-500", Order: 2},
			{ID: "budget_management", Name: "Gestion de Budget", Description: "Maîtrise des aspects financiers", Icon: "💰", Color: "bg-orange-500", Order: 3},
		},
	}
}
