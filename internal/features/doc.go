// ABOUTME: Package features defines the life-dashboard feature modules
// ABOUTME: Each module pairs a document shape with its mutation vocabulary

// Package features implements the dashboard's feature modules: habits,
// journal, goals, calendar, identity board, wheel of life, kanban, notes,
// data tables and vision board.
//
// Every module embeds a synced.Store over its own document type and adds
// feature-specific mutations. Mutations validate their input, compute the
// next value from the previous one without modifying it, and leave
// persistence to the store's debounce.
//
// Document locations:
//
//	habitTrackers/{uid}
//	journals/{uid}
//	notes/{uid}
//	visionBoards/{uid}
//	users/{uid}/goals/data
//	users/{uid}/identity/data
//	users/{uid}/lifeWheel/data
//	users/{uid}/tasks/data
//	users/{uid}/tables/data
//	users/{uid}/calendar/{year}-{zero-based month}
package features
