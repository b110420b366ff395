package models

// PropertyData is the payload of a property listing. Only title and price are
// mandatory; everything else is checked when present.
type PropertyData struct {
	Title         string   `json:"title"         validate:"required,min=3,max=200"`
	Description   string   `json:"description"   validate:"omitempty,max=5000"`
	Price         float64  `json:"price"         validate:"required,gt=0"`
	PropertyType  string   `json:"propertyType"  validate:"omitempty,oneof=apartment villa independent_house plot commercial farmhouse"`
	ListingType   string   `json:"listingType"   validate:"omitempty,oneof=sale rent lease"`
	Bedrooms      int      `json:"bedrooms"      validate:"gte=0,lte=50"`
	Bathrooms     int      `json:"bathrooms"     validate:"gte=0,lte=50"`
	AreaSqft      float64  `json:"areaSqft"      validate:"gte=0"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Pincode       string   `json:"pincode"       validate:"omitempty,len=6,numeric"`
	Latitude      *float64 `json:"latitude"      validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude"     validate:"omitempty,gte=-180,lte=180"`
	Images        []string `json:"images"`
	Amenities     []string `json:"amenities"`
	ContactPhone  string   `json:"contactPhone"  validate:"omitempty,phone"`
	ContactEmail  string   `json:"contactEmail"  validate:"omitempty,email"`
	FurnishStatus string   `json:"furnishStatus" validate:"omitempty,oneof=furnished semi_furnished unfurnished"`
}

type ProjectData struct {
	ProjectName   string   `json:"projectName"   validate:"required,min=3,max=200"`
	DeveloperName string   `json:"developerName" validate:"omitempty,max=200"`
	Description   string   `json:"description"   validate:"omitempty,max=10000"`
	City          string   `json:"city"          validate:"required"`
	Address       string   `json:"address"`
	Status        string   `json:"status"        validate:"omitempty,oneof=upcoming under_construction ready_to_move"`
	ReraNumber    string   `json:"reraNumber"    validate:"omitempty,alphanum,max=50"`
	TotalUnits    int      `json:"totalUnits"    validate:"gte=0"`
	PriceMin      float64  `json:"priceMin"      validate:"gte=0"`
	PriceMax      float64  `json:"priceMax"      validate:"omitempty,gtefield=PriceMin"`
	Latitude      *float64 `json:"latitude"      validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude"     validate:"omitempty,gte=-180,lte=180"`
	Images        []string `json:"images"`
	Amenities     []string `json:"amenities"`
	ContactPhone  string   `json:"contactPhone"  validate:"omitempty,phone"`
	ContactEmail  string   `json:"contactEmail"  validate:"omitempty,email"`
}

type PGHostelData struct {
	Name         string   `json:"name"         validate:"required,min=3,max=200"`
	Gender       string   `json:"gender"       validate:"required,oneof=male female unisex"`
	City         string   `json:"city"         validate:"required"`
	Address      string   `json:"address"`
	RentPerMonth float64  `json:"rentPerMonth" validate:"required,gt=0"`
	Deposit      float64  `json:"deposit"      validate:"gte=0"`
	Sharing      []string `json:"sharing"      validate:"omitempty,dive,oneof=single double triple quad dormitory"`
	FoodIncluded bool     `json:"foodIncluded"`
	Latitude     *float64 `json:"latitude"     validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude"    validate:"omitempty,gte=-180,lte=180"`
	Images       []string `json:"images"`
	Amenities    []string `json:"amenities"`
	ContactPhone string   `json:"contactPhone" validate:"omitempty,phone"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email"`
}

type DeveloperData struct {
	DeveloperName   string `json:"developerName"   validate:"required,min=2,max=200"`
	Description     string `json:"description"     validate:"omitempty,max=5000"`
	Email           string `json:"email"           validate:"omitempty,email"`
	Phone           string `json:"phone"           validate:"omitempty,phone"`
	Website         string `json:"website"         validate:"omitempty,url"`
	EstablishedYear int    `json:"establishedYear" validate:"omitempty,gte=1800,lte=2100"`
	City            string `json:"city"`
	Address         string `json:"address"`
	Logo            string `json:"logo"`
}

type PartnerData struct {
	Name        string `json:"name"        validate:"required,min=2,max=200"`
	Email       string `json:"email"       validate:"required,email"`
	Phone       string `json:"phone"       validate:"required,phone"`
	PartnerType string `json:"partnerType" validate:"required,oneof=agent broker builder owner"`
	CompanyName string `json:"companyName" validate:"omitempty,max=200"`
	City        string `json:"city"`
	ReraNumber  string `json:"reraNumber"  validate:"omitempty,alphanum,max=50"`
}

type BusinessData struct {
	BusinessName string `json:"businessName" validate:"required,min=2,max=200"`
	BusinessType string `json:"businessType" validate:"required,oneof=agency builder developer pg_operator co_living other"`
	Email        string `json:"email"        validate:"required,email"`
	Phone        string `json:"phone"        validate:"required,phone"`
	GSTNumber    string `json:"gstNumber"    validate:"omitempty,len=15,alphanum"`
	Website      string `json:"website"      validate:"omitempty,url"`
	City         string `json:"city"`
	Address      string `json:"address"`
}
