// Package matcher scores candidate POIs against a travel intent and
// estimates their duration and cost.
package matcher

import (
	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/normalize"
)

// Score weights.
const (
	KeywordWeight           = 20
	PrimaryCategoryWeight   = 15
	SecondaryCategoryWeight = 10

	// MinScore is the floor of every score so that all POIs stay orderable.
	MinScore = 1
)

var intentKeywords = map[domain.Intent][]string{
	domain.IntentFamily:  {"迪士尼", "海洋馆", "乐园", "动物园", "儿童", "科技馆", "水族馆", "游乐", "亲子", "童话"},
	domain.IntentCouple:  {"外滩", "夜景", "咖啡", "酒吧", "甜品", "江景", "灯光秀", "浪漫", "情侣", "观景"},
	domain.IntentFriends: {"网红", "打卡", "ins", "小红书", "下午茶", "拍照", "美食", "酒吧", "KTV", "桌游"},
	domain.IntentFood:    {"餐厅", "美食", "小吃", "火锅", "烧烤", "海鲜", "甜品", "咖啡", "茶馆", "特色菜"},
}

type categoryWeights struct {
	primary   []string
	secondary []string
}

var intentCategories = map[domain.Intent]categoryWeights{
	domain.IntentFamily: {
		primary:   []string{"theme park", "zoo", "aquarium", "乐园", "动物园", "海洋馆", "科技馆"},
		secondary: []string{"museum", "park", "博物馆", "公园"},
	},
	domain.IntentCouple: {
		primary:   []string{"coffee", "bar", "咖啡", "酒吧", "观景"},
		secondary: []string{"park", "dessert", "公园", "甜品"},
	},
	domain.IntentFriends: {
		primary:   []string{"ktv", "bar", "board game", "桌游", "酒吧"},
		secondary: []string{"restaurant", "coffee", "餐厅", "咖啡"},
	},
	domain.IntentFood: {
		primary:   []string{"restaurant", "snack", "餐厅", "小吃", "美食"},
		secondary: []string{"coffee", "dessert", "咖啡", "甜品"},
	},
}

// Keywords returns the intent's keyword list.
func Keywords(intent domain.Intent) []string {
	return intentKeywords[intent]
}

// Score rates how well a POI fits an intent. Keywords are matched against
// the name and category; category weights apply once, primary before
// secondary. The result is never below MinScore.
func Score(p domain.POI, intent domain.Intent) int {
	text := p.Name + " " + p.Category
	score := 0
	for _, kw := range intentKeywords[intent] {
		if normalize.ContainsFold(text, kw) {
			score += KeywordWeight
		}
	}

	weights := intentCategories[intent]
	switch {
	case containsAny(p.Category, weights.primary):
		score += PrimaryCategoryWeight
	case containsAny(p.Category, weights.secondary):
		score += SecondaryCategoryWeight
	}

	return max(score, MinScore)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if normalize.ContainsFold(s, sub) {
			return true
		}
	}
	return false
}
