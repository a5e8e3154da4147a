package nominatim

import "github.com/samirrijal/nearme/internal/core/domain"

var osmCategories = map[string]domain.CategoryCode{
	"amenity/cafe":       domain.CategoryCafe,
	"amenity/restaurant": domain.CategoryRestaurant,
	"amenity/fast_food":  domain.CategoryRestaurant,
	"amenity/bank":       domain.CategoryBank,
	"amenity/atm":        domain.CategoryATM,
	"amenity/hospital":   domain.CategoryHospital,
	"amenity/school":     domain.CategorySchool,
	"amenity/university": domain.CategoryUniversity,
	"amenity/fuel":       domain.CategoryGasStation,
	"tourism/hotel":      domain.CategoryHotel,
	"leisure/park":       domain.CategoryPark,
}

// categoryCode maps an OSM class/type pair to a category code. Shops are
// stores; other unknown pairs pass the type through to be humanized.
func categoryCode(class, typ string) domain.CategoryCode {
	if c, ok := osmCategories[class+"/"+typ]; ok {
		return c
	}
	if class == "shop" {
		return domain.CategoryStore
	}
	return typ
}
