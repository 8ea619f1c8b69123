package handlers

import (
	"encoding/json"
	"net/http"

	"agri-insights/internal/models"
)

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func jsonResponse(description string, schema object) object {
	return object{"description": description, "content": jsonContent(schema)}
}

func errorResponse(description string) object {
	return jsonResponse(description, ref("ErrorResponse"))
}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

var (
	cropParam   = queryParam("crop", "Filter by crop", object{"type": "string", "enum": enumOf(models.Crops)})
	seasonParam = queryParam("season", "Filter by season", object{"type": "string", "enum": enumOf(models.Seasons)})
)

// openAPIDocument describes the Agri Insights API
func openAPIDocument() object {
	number := object{"type": "number"}
	nullableNumber := object{"type": "number", "nullable": true}
	integer := object{"type": "integer"}
	str := object{"type": "string"}
	timestamp := object{"type": "string", "format": "date-time"}

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Agri Insights API",
			"description": "Crop yield prediction, farm energy efficiency and voice assistant API",
			"version":     "1.0.0",
			"contact":     map[string]string{"name": "Agri Insights Team"},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/yield/predict": object{
				"post": object{
					"summary":     "Predict crop yield",
					"description": "Estimate yield in tons per hectare and store it as the current prediction",
					"requestBody": object{"required": true, "content": jsonContent(ref("YieldQuery"))},
					"responses": object{
						"201": jsonResponse("Prediction stored", object{
							"type": "object",
							"properties": object{
								"prediction": ref("Prediction"),
								"factors":    ref("YieldFactors"),
							},
						}),
						"400": errorResponse("Invalid request"),
					},
				},
			},
			"/api/energy/calculate": object{
				"post": object{
					"summary":     "Calculate energy efficiency",
					"description": "Derive energy, cost, emissions and a sustainability rating. Without current_yield_tons_per_ha the current prediction's yield is used, else 5.5.",
					"requestBody": object{"required": true, "content": jsonContent(ref("EnergyQuery"))},
					"responses": object{
						"200": jsonResponse("Calculation result", object{
							"type": "object",
							"properties": object{
								"query":      ref("EnergyQuery"),
								"result":     ref("EnergyResult"),
								"prediction": ref("Prediction"),
							},
						}),
						"400": errorResponse("Invalid request"),
					},
				},
			},
			"/api/predictions": object{
				"get": object{
					"summary":     "List predictions",
					"description": "Prediction history, newest first",
					"parameters": []object{
						cropParam,
						seasonParam,
						queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
						queryParam("limit", "Records per page (default: 100)", object{"type": "integer", "default": 100}),
					},
					"responses": object{
						"200": jsonResponse("Successful response", object{
							"type": "object",
							"properties": object{
								"data":        object{"type": "array", "items": ref("Prediction")},
								"total":       integer,
								"page":        integer,
								"limit":       integer,
								"total_pages": integer,
							},
						}),
					},
				},
			},
			"/api/predictions/{id}": object{
				"get": object{
					"summary": "Get a prediction",
					"parameters": []object{
						{"name": "id", "in": "path", "required": true, "schema": integer},
					},
					"responses": object{
						"200": jsonResponse("Prediction", ref("Prediction")),
						"404": errorResponse("Prediction not found"),
					},
				},
			},
			"/api/predictions/current": object{
				"get": object{
					"summary": "Get the current prediction",
					"responses": object{
						"200": jsonResponse("Current prediction", ref("Prediction")),
						"404": errorResponse("No prediction is current"),
					},
				},
				"put": object{
					"summary": "Select the current prediction",
					"requestBody": object{"required": true, "content": jsonContent(object{
						"type":       "object",
						"required":   []string{"id"},
						"properties": object{"id": integer},
					})},
					"responses": object{
						"200": jsonResponse("New current prediction", ref("Prediction")),
						"400": errorResponse("Invalid request"),
						"404": errorResponse("Prediction not found"),
					},
				},
			},
			"/api/predictions/stats": object{
				"get": object{
					"summary":    "Prediction statistics per crop and season",
					"parameters": []object{cropParam, seasonParam},
					"responses": object{
						"200": jsonResponse("Statistics", object{"type": "array", "items": ref("CropStatistics")}),
					},
				},
			},
			"/api/predictions/export": object{
				"get": object{
					"summary":    "Export predictions as XLSX",
					"parameters": []object{cropParam, seasonParam},
					"responses": object{
						"200": object{
							"description": "Workbook with Predictions and Summary sheets",
							"content": object{
								"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": object{
									"schema": object{"type": "string", "format": "binary"},
								},
							},
						},
					},
				},
			},
			"/api/voice/command": object{
				"post": object{
					"summary": "Answer a voice assistant transcript",
					"requestBody": object{"required": true, "content": jsonContent(object{
						"type":       "object",
						"properties": object{"transcript": str},
					})},
					"responses": object{
						"200": jsonResponse("Assistant reply", object{
							"type": "object",
							"properties": object{
								"transcript": str,
								"intent":     object{"type": "string", "enum": []string{"weather", "yield", "irrigation", "market", "help"}},
								"response":   str,
							},
						}),
					},
				},
			},
			"/health": object{
				"get": object{
					"summary":     "Health check",
					"description": "Check if the API and its storage are available",
					"responses": object{
						"200": jsonResponse("API is healthy", object{
							"type":       "object",
							"properties": object{"status": str, "timestamp": timestamp},
						}),
						"503": object{"description": "Storage unavailable"},
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content":     object{"text/plain": object{"schema": str}},
						},
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"YieldQuery": object{
					"type":     "object",
					"required": []string{"crop", "season"},
					"properties": object{
						"crop":          object{"type": "string", "example": "Corn"},
						"location":      str,
						"season":        object{"type": "string", "enum": enumOf(models.Seasons)},
						"soil_type":     object{"type": "string", "enum": enumOf(models.SoilTypes)},
						"rainfall_mm":   object{"type": "number", "minimum": 0},
						"temperature_c": number,
					},
				},
				"YieldFactors": object{
					"type": "object",
					"properties": object{
						"base_yield":         number,
						"season_multiplier":  number,
						"soil_multiplier":    number,
						"weather_multiplier": number,
						"random_factor":      number,
					},
				},
				"Prediction": object{
					"type": "object",
					"properties": object{
						"id":              integer,
						"crop":            str,
						"location":        str,
						"season":          str,
						"soil_type":       str,
						"rainfall_mm":     nullableNumber,
						"temperature_c":   nullableNumber,
						"predicted_yield": number,
						"energy_data": object{
							"type": "object",
							"properties": object{
								"irrigation_hours":    number,
								"fertilizer_usage_kg": number,
								"energy_type":         str,
								"efficiency_score":    number,
							},
						},
						"is_current": object{"type": "boolean"},
						"created_at": timestamp,
						"updated_at": timestamp,
					},
				},
				"EnergyQuery": object{
					"type":     "object",
					"required": []string{"energy_type"},
					"properties": object{
						"irrigation_hours":          number,
						"fertilizer_usage_kg":       number,
						"energy_type":               object{"type": "string", "enum": []string{"grid", "solar", "wind", "diesel", "hybrid"}},
						"equipment_power_kw":        object{"type": "number", "default": 10},
						"fuel_consumption_l":        number,
						"electricity_cost_per_kwh":  object{"type": "number", "default": 0.12},
						"current_yield_tons_per_ha": number,
					},
				},
				"EnergyResult": object{
					"type": "object",
					"properties": object{
						"efficiency_score_kg_per_kwh": number,
						"total_energy_kwh":            number,
						"energy_cost":                 number,
						"co2_emissions_kg":            number,
						"sustainability_rating":       object{"type": "integer", "minimum": 1, "maximum": 10},
						"recommendations":             object{"type": "array", "items": str},
					},
				},
				"CropStatistics": object{
					"type": "object",
					"properties": object{
						"crop":               str,
						"season":             str,
						"prediction_count":   integer,
						"average_yield":      number,
						"min_yield":          number,
						"max_yield":          number,
						"with_energy_data":   integer,
						"average_efficiency": nullableNumber,
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error":   str,
						"message": str,
						"code":    integer,
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Agri Insights API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
