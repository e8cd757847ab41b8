package matching

import "cv-pipeline/internal/models"

// FallbackListings returns the fixed listing set used when the provider
// fails or returns nothing. Each call returns a fresh copy.
func FallbackListings() []models.JobListing {
	return []models.JobListing{
		{
			Title:        "Backend Engineer",
			Company:      "Tokopedia",
			Location:     "Jakarta, Indonesia",
			SalaryRange:  "IDR 15.000.000 – 25.000.000",
			JobType:      "Full-time",
			Seniority:    "Mid-level",
			Requirements: []string{"Node.js", "Express", "MongoDB", "RESTful APIs", "Docker"},
			Responsibilities: []string{
				"Develop and maintain scalable backend services",
				"Design and implement RESTful APIs",
				"Collaborate with frontend and DevOps teams",
				"Write unit and integration tests",
			},
			PostedAt: "2025-11-05",
			Link:     "https://www.linkedin.com/jobs/view/backend-engineer-at-tokopedia-12345",
		},
		{
			Title:        "Senior Node.js Developer",
			Company:      "GoTo Financial",
			Location:     "Jakarta, Indonesia",
			SalaryRange:  "IDR 25.000.000 – 35.000.000",
			JobType:      "Full-time",
			Seniority:    "Senior",
			Requirements: []string{"Node.js", "TypeScript", "PostgreSQL", "Redis", "Microservices", "AWS"},
			Responsibilities: []string{
				"Lead backend development for core financial services",
				"Architect scalable and secure microservices",
				"Mentor junior engineers",
				"Optimize system performance and reliability",
			},
			PostedAt: "2025-11-07",
			Link:     "https://glints.com/id/en/job/senior-nodejs-developer-goto-financial-67890",
		},
		{
			Title:        "Backend Developer (Express.js)",
			Company:      "Traveloka",
			Location:     "Bangalore / Remote (SEA)",
			SalaryRange:  "IDR 20.000.000 – 30.000.000",
			JobType:      "Full-time",
			Seniority:    "Mid-level",
			Requirements: []string{"Express.js", "Node.js", "MySQL", "Kafka", "CI/CD", "Git"},
			Responsibilities: []string{
				"Build high-performance APIs for travel booking systems",
				"Integrate with third-party payment and logistics providers",
				"Participate in agile development cycles",
			},
			PostedAt: "2025-11-01",
			Link:     "https://www.jobstreet.co.id/job/backend-developer-traveloka-24680",
		},
		{
			Title:        "Node.js API Engineer",
			Company:      "Bukalapak",
			Location:     "Jakarta, Indonesia",
			SalaryRange:  "IDR 18.000.000 – 28.000.000",
			JobType:      "Full-time",
			Seniority:    "Mid-level",
			Requirements: []string{"Node.js", "Express", "MongoDB", "GraphQL", "Jest", "Docker"},
			Responsibilities: []string{
				"Develop internal and external-facing APIs",
				"Implement GraphQL endpoints for frontend consumption",
				"Ensure API documentation is up-to-date",
				"Monitor service health via logging and metrics",
			},
			PostedAt: "2025-11-09",
			Link:     "https://kalibrr.com/bukalapak/nodejs-api-engineer-13579",
		},
		{
			Title:        "Junior Backend Developer",
			Company:      "Mekari",
			Location:     "Yogyakarta, Indonesia",
			SalaryRange:  "IDR 8.000.000 – 12.000.000",
			JobType:      "Full-time",
			Seniority:    "Entry-level",
			Requirements: []string{"Node.js", "Express", "Basic SQL", "Git", "REST API concepts"},
			Responsibilities: []string{
				"Assist in building internal HR and payroll services",
				"Fix bugs and implement small features under supervision",
				"Write clean and maintainable code",
			},
			PostedAt: "2025-11-10",
			Link:     "https://glints.com/id/en/job/junior-backend-mekari-97531",
		},
	}
}
